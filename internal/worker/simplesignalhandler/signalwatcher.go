// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package simplesignalhandler turns a process signal into a worker error,
// so that a daemon's workers stop when it is asked to terminate.
package simplesignalhandler

import (
	"os"

	"github.com/juju/errors"
	"github.com/juju/worker/v4/catacomb"
)

// ErrTerminated is the error a SignalWatcher dies with when it receives a
// signal that has no other mapping.
const ErrTerminated = errors.ConstError("terminated by signal")

// Logger is the logging the watcher needs.
type Logger interface {
	Infof(string, ...any)
}

// SignalHandlerFunc returns the error the watcher should die with on
// receipt of a signal.
type SignalHandlerFunc func(os.Signal) error

// SignalWatcher is a worker that waits for one signal and then dies with
// the error its handler returns for it.
type SignalWatcher struct {
	catacomb catacomb.Catacomb
	handler  SignalHandlerFunc
	logger   Logger
	sigCh    <-chan os.Signal
}

// NewSignalWatcher starts a watcher over sigCh.
func NewSignalWatcher(
	logger Logger,
	sigCh <-chan os.Signal,
	handler SignalHandlerFunc,
) (*SignalWatcher, error) {
	if logger == nil {
		return nil, errors.NotValidf("nil Logger")
	}
	if sigCh == nil {
		return nil, errors.NotValidf("nil signal channel")
	}
	if handler == nil {
		return nil, errors.NotValidf("nil handler")
	}
	s := &SignalWatcher{
		handler: handler,
		logger:  logger,
		sigCh:   sigCh,
	}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &s.catacomb,
		Work: s.watch,
	}); err != nil {
		return nil, errors.Annotate(err, "starting signal watcher")
	}
	return s, nil
}

// SignalHandler returns a handler that looks the signal up in signalMap,
// falling back to defaultErr.
func SignalHandler(defaultErr error, signalMap map[os.Signal]error) SignalHandlerFunc {
	return func(sig os.Signal) error {
		if err, ok := signalMap[sig]; ok {
			return err
		}
		return defaultErr
	}
}

// Kill is part of the worker.Worker interface.
func (s *SignalWatcher) Kill() {
	s.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (s *SignalWatcher) Wait() error {
	return s.catacomb.Wait()
}

func (s *SignalWatcher) watch() error {
	select {
	case <-s.catacomb.Dying():
		return s.catacomb.ErrDying()
	case sig, ok := <-s.sigCh:
		if !ok {
			return errors.New("signal channel closed unexpectedly")
		}
		s.logger.Infof("received %v", sig)
		return s.handler(sig)
	}
}
