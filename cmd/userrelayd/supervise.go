// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
	"github.com/juju/worker/v4"
)

const (
	// errStopped ends supervision without another attempt.
	errStopped = errors.ConstError("supervisor stopped")

	restartDelay    = time.Second
	maxRestartDelay = 30 * time.Second
)

// StartFunc starts a session. The context is cancelled when supervision
// is stopped.
type StartFunc func(ctx context.Context) (worker.Worker, error)

type superviseParams struct {
	Start StartFunc
	Stop  <-chan struct{}
	Clock clock.Clock

	Logger Logger

	// Delay and MaxDelay bound the doubling pause between sessions.
	Delay    time.Duration
	MaxDelay time.Duration
}

// supervise starts a session and restarts it whenever it dies, until Stop
// is closed. It returns nil once stopped.
func supervise(p superviseParams) error {
	if p.Delay == 0 {
		p.Delay = restartDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = maxRestartDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.Stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return runSession(ctx, p)
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, errStopped)
		},
		NotifyFunc: func(err error, attempt int) {
			p.Logger.Warningf("session %d failed: %v", attempt, err)
		},
		Attempts:    -1, // until stopped
		Delay:       p.Delay,
		MaxDelay:    p.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       p.Clock,
		Stop:        p.Stop,
	})
	if errors.Is(err, errStopped) || retry.IsRetryStopped(err) {
		return nil
	}
	return errors.Trace(err)
}

func runSession(ctx context.Context, p superviseParams) error {
	w, err := p.Start(ctx)
	if err != nil {
		select {
		case <-p.Stop:
			return errStopped
		default:
		}
		return errors.Annotate(err, "starting session")
	}
	p.Logger.Infof("session started")

	dead := make(chan error, 1)
	go func() {
		dead <- w.Wait()
	}()
	select {
	case <-p.Stop:
		if err := worker.Stop(w); err != nil {
			p.Logger.Warningf("session stopped with error: %v", err)
		}
		return errStopped
	case err := <-dead:
		if err == nil {
			err = errors.New("session stopped unexpectedly")
		}
		return errors.Trace(err)
	}
}
