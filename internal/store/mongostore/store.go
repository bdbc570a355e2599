// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package mongostore keeps user documents in a MongoDB collection. Native
// identifiers are BSON object ids, rendered as hex strings on the wire.
package mongostore

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/mgo/v3/bson"

	"github.com/juju/userrelay/core/user"
)

// Collection is the set of collection operations the store is built on.
// Implementations return mgo.ErrNotFound for absent documents.
type Collection interface {
	Insert(doc bson.M) error
	FindID(id bson.ObjectId, doc *bson.M) error
	RemoveID(id bson.ObjectId) error
	UpdateID(id bson.ObjectId, doc bson.M) error
	All(docs *[]bson.M) error
}

// Store is a user document store backed by a Collection.
type Store struct {
	coll  Collection
	close func()
}

// NewStore returns a store over the given collection.
func NewStore(coll Collection) *Store {
	return &Store{
		coll:  coll,
		close: func() {},
	}
}

// Close releases the store's database session, if it owns one.
func (s *Store) Close() {
	s.close()
}

// ParseID parses a hex object id.
func (s *Store) ParseID(id string) (any, error) {
	if !bson.IsObjectIdHex(id) {
		return nil, errors.NotValidf("user id %q", id)
	}
	return bson.ObjectIdHex(id), nil
}

// FormatID renders an object id as hex.
func (s *Store) FormatID(nativeID any) (string, error) {
	id, ok := nativeID.(bson.ObjectId)
	if !ok || !id.Valid() {
		return "", errors.NotValidf("native user id %v (%T)", nativeID, nativeID)
	}
	return id.Hex(), nil
}

// Insert stores fields as a new document with a fresh object id.
func (s *Store) Insert(ctx context.Context, fields user.Fields) (user.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	id := bson.NewObjectId()
	doc := toBSON(id, fields)
	if err := s.coll.Insert(doc); err != nil {
		return nil, errors.Annotate(err, "inserting user")
	}
	return fromBSON(doc), nil
}

// FindID returns the document with the given object id.
func (s *Store) FindID(ctx context.Context, nativeID any) (user.Document, error) {
	id, err := objectID(nativeID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	var doc bson.M
	if err := s.coll.FindID(id, &doc); err != nil {
		return nil, mapError(err, id, "finding")
	}
	return fromBSON(doc), nil
}

// RemoveID removes the document with the given object id.
func (s *Store) RemoveID(ctx context.Context, nativeID any) error {
	id, err := objectID(nativeID)
	if err != nil {
		return errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	return mapError(s.coll.RemoveID(id), id, "removing")
}

// ReplaceID replaces the document with the given object id by fields.
func (s *Store) ReplaceID(ctx context.Context, nativeID any, fields user.Fields) error {
	id, err := objectID(nativeID)
	if err != nil {
		return errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	return mapError(s.coll.UpdateID(id, toBSON(id, fields)), id, "replacing")
}

// FindAll returns every document ordered by object id.
func (s *Store) FindAll(ctx context.Context) ([]user.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	var raw []bson.M
	if err := s.coll.All(&raw); err != nil {
		return nil, errors.Annotate(err, "listing users")
	}
	docs := make([]user.Document, 0, len(raw))
	for _, doc := range raw {
		docs = append(docs, fromBSON(doc))
	}
	return docs, nil
}

func objectID(nativeID any) (bson.ObjectId, error) {
	id, ok := nativeID.(bson.ObjectId)
	if !ok || !id.Valid() {
		return "", errors.NotValidf("native user id %v (%T)", nativeID, nativeID)
	}
	return id, nil
}

func toBSON(id bson.ObjectId, fields user.Fields) bson.M {
	doc := make(bson.M, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[user.NativeIDKey] = id
	return doc
}

func fromBSON(doc bson.M) user.Document {
	return user.NewDocument(doc[user.NativeIDKey], user.FieldsFrom(doc))
}
