// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package user holds the shapes a user record takes on its way between the
// document store and the wire.
package user

const (
	// IDKey is the wire key holding a record's string identifier.
	IDKey = "id"

	// NativeIDKey is the document key holding the store-native identifier.
	NativeIDKey = "_id"
)

// Fields is the open set of attribute fields of a user, without any
// identifier.
type Fields map[string]any

// FieldsFrom copies src into a new Fields value, dropping both identifier
// keys. A nil src yields an empty, non-nil Fields.
func FieldsFrom(src map[string]any) Fields {
	fields := make(Fields, len(src))
	for k, v := range src {
		if k == IDKey || k == NativeIDKey {
			continue
		}
		fields[k] = v
	}
	return fields
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Document is a user as the document store holds it: attribute fields plus
// the store-native identifier under NativeIDKey.
type Document map[string]any

// NewDocument returns a document holding a copy of fields and the native id.
func NewDocument(nativeID any, fields Fields) Document {
	doc := make(Document, len(fields)+1)
	for k, v := range fields {
		doc[k] = v
	}
	doc[NativeIDKey] = nativeID
	return doc
}

// NativeID returns the store-native identifier, or nil if the document has
// none.
func (d Document) NativeID() any {
	return d[NativeIDKey]
}

// Fields returns the attribute fields of the document.
func (d Document) Fields() Fields {
	return FieldsFrom(d)
}

// Record is a user as it travels on the wire. The identifier is always a
// string under IDKey.
type Record map[string]any

// NewRecord returns a record holding a copy of fields and the string id.
func NewRecord(id string, fields Fields) Record {
	rec := make(Record, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[IDKey] = id
	return rec
}

// ID returns the record identifier and whether it is present as a string.
func (r Record) ID() (string, bool) {
	id, ok := r[IDKey].(string)
	return id, ok
}
