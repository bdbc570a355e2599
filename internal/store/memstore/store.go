// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package memstore provides an in-process user document store. Documents
// keep their insertion order and are identified by int64 ids, rendered as
// decimal strings on the wire.
package memstore

import (
	"context"
	"strconv"
	"sync"

	"github.com/juju/errors"
	"github.com/mohae/deepcopy"

	"github.com/juju/userrelay/core/user"
)

// Store is an in-process document store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nextID int64
	order  []int64
	docs   map[int64]user.Fields
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs: make(map[int64]user.Fields),
	}
}

// ParseID parses a decimal wire id.
func (s *Store) ParseID(id string) (any, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, errors.NotValidf("user id %q", id)
	}
	return n, nil
}

// FormatID renders a native id as a decimal string.
func (s *Store) FormatID(nativeID any) (string, error) {
	n, ok := nativeID.(int64)
	if !ok {
		return "", errors.NotValidf("native user id %v (%T)", nativeID, nativeID)
	}
	return strconv.FormatInt(n, 10), nil
}

// Insert stores a copy of fields under a new id.
func (s *Store) Insert(_ context.Context, fields user.Fields) (user.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	stored := deepCopy(fields)
	s.docs[id] = stored
	s.order = append(s.order, id)
	return user.NewDocument(id, deepCopy(stored)), nil
}

// FindID returns the document with the given native id.
func (s *Store) FindID(_ context.Context, nativeID any) (user.Document, error) {
	id, err := s.key(nativeID)
	if err != nil {
		return nil, errors.Trace(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.docs[id]
	if !ok {
		return nil, errors.NotFoundf("user %d", id)
	}
	return user.NewDocument(id, deepCopy(fields)), nil
}

// RemoveID removes the document with the given native id.
func (s *Store) RemoveID(_ context.Context, nativeID any) error {
	id, err := s.key(nativeID)
	if err != nil {
		return errors.Trace(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return errors.NotFoundf("user %d", id)
	}
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceID replaces every field of the document with the given native id.
func (s *Store) ReplaceID(_ context.Context, nativeID any, fields user.Fields) error {
	id, err := s.key(nativeID)
	if err != nil {
		return errors.Trace(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return errors.NotFoundf("user %d", id)
	}
	s.docs[id] = deepCopy(fields)
	return nil
}

// FindAll returns every document in insertion order.
func (s *Store) FindAll(_ context.Context) ([]user.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]user.Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, user.NewDocument(id, deepCopy(s.docs[id])))
	}
	return docs, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) key(nativeID any) (int64, error) {
	id, ok := nativeID.(int64)
	if !ok {
		return 0, errors.NotValidf("native user id %v (%T)", nativeID, nativeID)
	}
	return id, nil
}

// deepCopy copies fields and every map and slice nested in them, so callers
// never share state with the store.
func deepCopy(fields user.Fields) user.Fields {
	if fields == nil {
		return user.Fields{}
	}
	return deepcopy.Copy(fields).(user.Fields)
}
