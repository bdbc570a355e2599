// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testhelpers holds helpers shared by the userrelay test suites.
package testhelpers

import (
	"strings"

	"github.com/juju/loggo/v2"
)

// LogCapture is a logger whose output is kept in memory.
type LogCapture struct {
	loggo.Logger

	writer *loggo.TestWriter
}

// NewLogCapture returns a logger for the named module that records every
// message at or above TRACE.
func NewLogCapture(module string) *LogCapture {
	writer := &loggo.TestWriter{}
	ctx := loggo.NewContext(loggo.TRACE)
	_ = ctx.AddWriter("capture", writer)
	return &LogCapture{
		Logger: ctx.GetLogger(module),
		writer: writer,
	}
}

// Messages returns the recorded messages at or above the given level.
func (l *LogCapture) Messages(level loggo.Level) []string {
	var out []string
	for _, entry := range l.writer.Log() {
		if entry.Level >= level {
			out = append(out, entry.Message)
		}
	}
	return out
}

// Contains reports whether any recorded message at or above level contains
// substr.
func (l *LogCapture) Contains(level loggo.Level, substr string) bool {
	for _, msg := range l.Messages(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
