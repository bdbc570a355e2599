// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package logsink provides a loggo writer that batches log entries and
// writes them as JSON lines to a rotating file.
package logsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
	"gopkg.in/tomb.v2"
)

const (
	stateFlushed = "flushed"
	stateTimeout = "timeout"

	// drainTimeout bounds how long a dying sink waits for an in-flight
	// batch before writing what remains.
	drainTimeout = time.Second
)

// Record is one log line as written to the file.
type Record struct {
	Time     time.Time `json:"timestamp"`
	Level    string    `json:"level"`
	Module   string    `json:"module"`
	Location string    `json:"location,omitempty"`
	Message  string    `json:"message"`
}

// RecordFromEntry converts a loggo entry.
func RecordFromEntry(entry loggo.Entry) Record {
	var location string
	if entry.Filename != "" {
		location = fmt.Sprintf("%s:%d", entry.Filename, entry.Line)
	}
	return Record{
		Time:     entry.Timestamp.UTC(),
		Level:    entry.Level.String(),
		Module:   entry.Module,
		Location: location,
		Message:  entry.Message,
	}
}

// Config holds the configuration of a LogSink.
type Config struct {
	// Writer receives the encoded batches. The sink takes ownership of it
	// and closes it when it stops.
	Writer io.WriteCloser

	// BatchSize is the number of records collected before a batch is
	// written. Larger batches are written as they are.
	BatchSize int

	// FlushInterval is the longest a record waits in a partial batch.
	FlushInterval time.Duration

	Clock clock.Clock
}

// Validate ensures that the configuration is correctly populated.
func (config Config) Validate() error {
	if config.Writer == nil {
		return errors.NotValidf("nil Writer")
	}
	if config.BatchSize <= 0 {
		return errors.NotValidf("non-positive BatchSize")
	}
	if config.FlushInterval <= 0 {
		return errors.NotValidf("non-positive FlushInterval")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// OpenFile returns a size-rotated file writer for path.
func OpenFile(path string, maxSizeMB, maxBackups int) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}

// LogSink is a loggo.Writer and a worker. Only one LogSink may write to a
// given file, otherwise lines interleave.
type LogSink struct {
	tomb           tomb.Tomb
	config         Config
	internalStates chan string

	in  chan []Record
	out chan []Record
}

// NewLogSink starts a sink.
func NewLogSink(config Config) (*LogSink, error) {
	return newLogSink(config, nil)
}

func newLogSink(config Config, internalStates chan string) (*LogSink, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &LogSink{
		config:         config,
		internalStates: internalStates,
		in:             make(chan []Record),
		out:            make(chan []Record),
	}
	w.tomb.Go(w.loop)
	return w, nil
}

// Write is part of the loggo.Writer interface. Entries written after the
// sink has stopped are dropped.
func (w *LogSink) Write(entry loggo.Entry) {
	_ = w.Log([]Record{RecordFromEntry(entry)})
}

// Log queues records for writing.
func (w *LogSink) Log(records []Record) error {
	select {
	case <-w.tomb.Dying():
		return tomb.ErrDying
	case w.in <- records:
		return nil
	}
}

// Kill is part of the worker.Worker interface.
func (w *LogSink) Kill() {
	w.tomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *LogSink) Wait() error {
	return w.tomb.Wait()
}

// Close stops the sink and closes the underlying writer.
func (w *LogSink) Close() error {
	w.Kill()
	return w.Wait()
}

func (w *LogSink) loop() error {
	defer func() { _ = w.config.Writer.Close() }()

	writing := make(chan struct{})
	w.tomb.Go(func() error {
		defer close(writing)

		var buffer bytes.Buffer
		encoder := json.NewEncoder(&buffer)
		for {
			select {
			case <-w.tomb.Dying():
				return tomb.ErrDying
			case records := <-w.out:
				w.write(&buffer, encoder, records)
			}
		}
	})

	var (
		entries []Record
		flush   <-chan time.Time
		in      = w.in
		out     chan []Record
	)
	for {
		select {
		case <-w.tomb.Dying():
			// The writer goroutine must be finished before the remainder is
			// written from here, or the writer closed.
			select {
			case <-writing:
			case <-w.config.Clock.After(drainTimeout):
				return errors.Errorf("failed to write %d log messages: %v", len(entries), tomb.ErrDying)
			}
			if len(entries) > 0 {
				var buffer bytes.Buffer
				w.write(&buffer, json.NewEncoder(&buffer), entries)
			}
			return tomb.ErrDying

		case records := <-in:
			if len(entries) == 0 {
				flush = w.config.Clock.After(w.config.FlushInterval)
			}
			entries = append(entries, records...)
			if len(entries) >= w.config.BatchSize {
				in, out = nil, w.out
			}

		case <-flush:
			flush = nil
			in, out = nil, w.out
			w.reportInternalState(stateTimeout)

		case out <- entries:
			entries = nil
			flush = nil
			in, out = w.in, nil
		}
	}
}

func (w *LogSink) write(buffer *bytes.Buffer, encoder *json.Encoder, records []Record) {
	if len(records) == 0 {
		return
	}
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode log message: %v\n", err)
		}
	}
	// This is the loggo writer, so failures cannot be logged through loggo.
	if _, err := w.config.Writer.Write(buffer.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write log messages: %v\n", err)
	}
	buffer.Reset()

	w.reportInternalState(stateFlushed)
}

func (w *LogSink) reportInternalState(state string) {
	if w.internalStates == nil {
		return
	}
	select {
	case <-w.tomb.Dying():
	case w.internalStates <- state:
	}
}
