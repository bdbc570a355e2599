// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package dispatcher maps command envelopes onto user store operations and
// folds every outcome into a result envelope.
package dispatcher

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/userrelay/core/envelope"
	"github.com/juju/userrelay/core/user"
)

// Logger is the logging the dispatcher needs.
type Logger interface {
	Warningf(string, ...any)
	Debugf(string, ...any)
}

// IDCodec translates between wire ids and store-native ids.
type IDCodec interface {
	ParseID(id string) (any, error)
	FormatID(nativeID any) (string, error)
}

// Store is the document store the dispatcher drives. Absent documents are
// reported with errors satisfying errors.NotFound.
type Store interface {
	IDCodec

	Insert(ctx context.Context, fields user.Fields) (user.Document, error)
	FindID(ctx context.Context, nativeID any) (user.Document, error)
	RemoveID(ctx context.Context, nativeID any) error
	ReplaceID(ctx context.Context, nativeID any, fields user.Fields) error
	FindAll(ctx context.Context) ([]user.Document, error)
}

type handlerFunc func(ctx context.Context, fields map[string]any) (any, error)

// Dispatcher executes commands against a Store.
type Dispatcher struct {
	store    Store
	logger   Logger
	handlers map[string]handlerFunc
}

// New returns a dispatcher over the given store.
func New(store Store, logger Logger) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		logger: logger,
	}
	d.handlers = map[string]handlerFunc{
		envelope.AddUser:     d.addUser,
		envelope.GetUser:     d.getUser,
		envelope.DeleteUser:  d.deleteUser,
		envelope.UpdateUser:  d.updateUser,
		envelope.GetUserList: d.getUserList,
	}
	return d
}

// Execute runs cmd and returns its result envelope. It never returns a
// store error directly: failures are carried in the envelope.
func (d *Dispatcher) Execute(ctx context.Context, cmd envelope.Command) envelope.Result {
	if !cmd.Present {
		d.logger.Warningf("command expected")
		return envelope.Failed(nil, envelope.UnknownCommandMessage)
	}
	handler, ok := d.handlers[cmd.Name]
	if !ok {
		d.logger.Debugf("unknown command %q", cmd.Name)
		return envelope.Failed(cmd.NamePtr(), envelope.UnknownCommandMessage)
	}

	result, err := handler(ctx, cmd.Fields)
	if err != nil {
		d.logger.Debugf("%s failed: %v", cmd.Name, err)
		return envelope.Failed(cmd.NamePtr(), err.Error())
	}
	return envelope.Succeeded(cmd.Name, result)
}

func (d *Dispatcher) addUser(ctx context.Context, fields map[string]any) (any, error) {
	doc, err := d.store.Insert(ctx, user.FieldsFrom(fields))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return d.record(doc)
}

func (d *Dispatcher) getUser(ctx context.Context, fields map[string]any) (any, error) {
	_, nativeID, err := d.nativeID(fields)
	if err != nil {
		return nil, errors.Trace(err)
	}
	doc, err := d.store.FindID(ctx, nativeID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return d.record(doc)
}

func (d *Dispatcher) deleteUser(ctx context.Context, fields map[string]any) (any, error) {
	id, nativeID, err := d.nativeID(fields)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := d.store.RemoveID(ctx, nativeID); err != nil && !errors.Is(err, errors.NotFound) {
		return nil, errors.Trace(err)
	}
	return user.Record{user.IDKey: id}, nil
}

// updateUser replaces the stored fields and reads the record back. The two
// steps are not atomic.
func (d *Dispatcher) updateUser(ctx context.Context, fields map[string]any) (any, error) {
	_, nativeID, err := d.nativeID(fields)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := d.store.ReplaceID(ctx, nativeID, user.FieldsFrom(fields)); err != nil {
		return nil, errors.Trace(err)
	}
	doc, err := d.store.FindID(ctx, nativeID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return d.record(doc)
}

func (d *Dispatcher) getUserList(ctx context.Context, _ map[string]any) (any, error) {
	docs, err := d.store.FindAll(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	records := make([]user.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := d.record(doc)
		if err != nil {
			return nil, errors.Trace(err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// nativeID extracts the wire id from fields and parses it into the store's
// native form.
func (d *Dispatcher) nativeID(fields map[string]any) (string, any, error) {
	raw, ok := fields[user.IDKey]
	if !ok || raw == nil {
		return "", nil, errors.NotValidf("empty user id")
	}
	id, ok := raw.(string)
	if !ok {
		return "", nil, errors.NotValidf("user id %v", raw)
	}
	if id == "" {
		return "", nil, errors.NotValidf("empty user id")
	}
	nativeID, err := d.store.ParseID(id)
	if err != nil {
		return "", nil, errors.Trace(err)
	}
	return id, nativeID, nil
}

func (d *Dispatcher) record(doc user.Document) (user.Record, error) {
	id, err := d.store.FormatID(doc.NativeID())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return user.NewRecord(id, doc.Fields()), nil
}
