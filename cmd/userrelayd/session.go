// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"sync"

	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"
)

// session runs a group of workers that live and die together. When the
// last of them has stopped, cleanup runs once.
type session struct {
	catacomb catacomb.Catacomb
	once     sync.Once
	cleanup  func()
}

func newSession(workers []worker.Worker, cleanup func()) (worker.Worker, error) {
	s := &session{cleanup: cleanup}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &s.catacomb,
		Work: s.loop,
		Init: workers,
	}); err != nil {
		for _, w := range workers {
			_ = worker.Stop(w)
		}
		s.runCleanup()
		return nil, errors.Trace(err)
	}
	return s, nil
}

// Kill is part of the worker.Worker interface.
func (s *session) Kill() {
	s.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (s *session) Wait() error {
	err := s.catacomb.Wait()
	s.runCleanup()
	return err
}

func (s *session) loop() error {
	<-s.catacomb.Dying()
	return s.catacomb.ErrDying()
}

func (s *session) runCleanup() {
	s.once.Do(func() {
		if s.cleanup != nil {
			s.cleanup()
		}
	})
}
