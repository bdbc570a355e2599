// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testhelpers

import (
	"time"

	gc "gopkg.in/check.v1"
)

const (
	// ShortWait bounds waits for events that should not happen. Tests
	// really spend this long.
	ShortWait = 50 * time.Millisecond

	// LongWait bounds waits for events that should already have happened.
	LongWait = 10 * time.Second
)

// WaitUntil polls cond until it holds, failing the test after LongWait.
func WaitUntil(c *gc.C, what string, cond func() bool) {
	deadline := time.After(LongWait)
	for !cond() {
		select {
		case <-deadline:
			c.Fatalf("timed out waiting for %s", what)
		case <-time.After(ShortWait / 10):
		}
	}
}
