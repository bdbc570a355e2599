// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package envelope defines the wire messages exchanged between the edge and
// data relays: command envelopes travelling towards the data service and
// result envelopes travelling back.
package envelope

import (
	"bytes"
	"encoding/json"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// The command vocabulary understood by the data service.
const (
	AddUser     = "add_user"
	GetUser     = "get_user"
	DeleteUser  = "delete_user"
	UpdateUser  = "update_user"
	GetUserList = "get_user_list"
)

var vocabulary = set.NewStrings(AddUser, GetUser, DeleteUser, UpdateUser, GetUserList)

// IsKnown reports whether name is in the command vocabulary.
func IsKnown(name string) bool {
	return vocabulary.Contains(name)
}

// UnknownCommandMessage is the failure message for commands outside the
// vocabulary, including envelopes with no command at all.
const UnknownCommandMessage = "Unknown command"

// commandKey is the envelope key naming the command.
const commandKey = "command"

// Command is a decoded command envelope.
type Command struct {
	// Name is the command name. It is empty when Present is false.
	Name string

	// Present reports whether the envelope carried a command key.
	Present bool

	// Fields holds every payload key except the command key.
	Fields map[string]any
}

// NewCommand returns a command envelope with the given name and payload.
func NewCommand(name string, fields map[string]any) Command {
	return Command{
		Name:    name,
		Present: true,
		Fields:  fields,
	}
}

// NamePtr returns a pointer to the command name, or nil when the envelope
// carried none. It is the shape failure envelopes need.
func (c Command) NamePtr() *string {
	if !c.Present {
		return nil
	}
	name := c.Name
	return &name
}

// DecodeCommand decodes a command envelope. The body must be a JSON object
// and its command key, when present, must be a string. A null command is
// treated as missing.
func DecodeCommand(body []byte) (Command, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Command{}, errors.NotValidf("command envelope %q", truncate(body))
	}
	if raw == nil {
		return Command{}, errors.NotValidf("null command envelope")
	}

	cmd := Command{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		if key == commandKey {
			if string(value) == "null" {
				continue
			}
			if err := json.Unmarshal(value, &cmd.Name); err != nil {
				return Command{}, errors.NotValidf("command name %s", value)
			}
			cmd.Present = true
			continue
		}
		var v any
		if err := unmarshalNumbers(value, &v); err != nil {
			return Command{}, errors.Annotatef(err, "decoding field %q", key)
		}
		cmd.Fields[key] = nativeNumbers(v)
	}
	return cmd, nil
}

// EncodeCommand encodes a command envelope.
func EncodeCommand(cmd Command) ([]byte, error) {
	out := make(map[string]any, len(cmd.Fields)+1)
	for k, v := range cmd.Fields {
		out[k] = v
	}
	if cmd.Present {
		out[commandKey] = cmd.Name
	}
	body, err := json.Marshal(out)
	return body, errors.Trace(err)
}

// Result is a result envelope. Exactly one of OK and Error is set.
type Result struct {
	OK    *Success `json:"ok,omitempty"`
	Error *Failure `json:"error,omitempty"`
}

// Success is the payload of a successful command.
type Success struct {
	Command string `json:"command"`
	Result  any    `json:"result"`
}

// Failure is the payload of a failed command. Command is nil when the
// originating envelope named no command.
type Failure struct {
	Command *string `json:"command"`
	Message string  `json:"message"`
}

// Succeeded returns a success envelope for the named command.
func Succeeded(command string, result any) Result {
	return Result{OK: &Success{
		Command: command,
		Result:  result,
	}}
}

// Failed returns a failure envelope.
func Failed(command *string, message string) Result {
	return Result{Error: &Failure{
		Command: command,
		Message: message,
	}}
}

// IsSuccessFor reports whether r is a success envelope for the named command.
func (r Result) IsSuccessFor(command string) bool {
	return r.OK != nil && r.OK.Command == command
}

// Validate checks that exactly one side of the union is set.
func (r Result) Validate() error {
	switch {
	case r.OK == nil && r.Error == nil:
		return errors.NotValidf("empty result envelope")
	case r.OK != nil && r.Error != nil:
		return errors.NotValidf("result envelope with both ok and error")
	}
	return nil
}

// DecodeResult decodes a result envelope.
func DecodeResult(body []byte) (Result, error) {
	var r Result
	if err := unmarshalNumbers(body, &r); err != nil {
		return Result{}, errors.NotValidf("result envelope %q", truncate(body))
	}
	if err := r.Validate(); err != nil {
		return Result{}, errors.Trace(err)
	}
	return r, nil
}

// EncodeResult encodes a result envelope.
func EncodeResult(r Result) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	body, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Annotate(err, "encoding result envelope")
	}
	return body, nil
}

// unmarshalNumbers decodes body into v, keeping numbers as json.Number so
// that integers beyond float64 precision survive.
func unmarshalNumbers(body []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errors.Errorf("trailing data after JSON value")
	}
	return nil
}

// nativeNumbers replaces every json.Number in v with an int64 when it is a
// whole number in range, and a float64 otherwise.
func nativeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = nativeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = nativeNumbers(e)
		}
		return t
	default:
		return v
	}
}

func truncate(body []byte) string {
	const limit = 64
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
