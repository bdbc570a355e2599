// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package mongostore

import (
	"net"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"
)

// Config describes where the user collection lives.
type Config struct {
	Host       string
	Port       int
	Database   string
	Collection string

	// Timeout bounds the initial dial.
	Timeout time.Duration
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.NotValidf("empty Host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.NotValidf("Port %d", c.Port)
	}
	if c.Database == "" {
		return errors.NotValidf("empty Database")
	}
	if c.Collection == "" {
		return errors.NotValidf("empty Collection")
	}
	if c.Timeout <= 0 {
		return errors.NotValidf("non-positive Timeout")
	}
	return nil
}

// Open dials MongoDB and returns a store over the configured collection.
// The store owns the session; call Close to release it.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	session, err := mgo.DialWithInfo(&mgo.DialInfo{
		Addrs:    []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Database: cfg.Database,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, errors.Annotatef(err, "connecting to mongodb at %s:%d", cfg.Host, cfg.Port)
	}
	session.SetMode(mgo.Strong, true)

	store := NewStore(&sessionCollection{
		session:    session,
		database:   cfg.Database,
		collection: cfg.Collection,
	})
	store.close = session.Close
	return store, nil
}

// sessionCollection runs each operation on a copy of the root session, so
// concurrent callers get their own sockets.
type sessionCollection struct {
	session    *mgo.Session
	database   string
	collection string
}

func (c *sessionCollection) with(f func(*mgo.Collection) error) error {
	session := c.session.Copy()
	defer session.Close()
	return f(session.DB(c.database).C(c.collection))
}

func (c *sessionCollection) Insert(doc bson.M) error {
	return c.with(func(coll *mgo.Collection) error {
		return coll.Insert(doc)
	})
}

func (c *sessionCollection) FindID(id bson.ObjectId, doc *bson.M) error {
	return c.with(func(coll *mgo.Collection) error {
		return coll.FindId(id).One(doc)
	})
}

func (c *sessionCollection) RemoveID(id bson.ObjectId) error {
	return c.with(func(coll *mgo.Collection) error {
		return coll.RemoveId(id)
	})
}

func (c *sessionCollection) UpdateID(id bson.ObjectId, doc bson.M) error {
	return c.with(func(coll *mgo.Collection) error {
		return coll.UpdateId(id, doc)
	})
}

func (c *sessionCollection) All(docs *[]bson.M) error {
	return c.with(func(coll *mgo.Collection) error {
		return coll.Find(nil).Sort("_id").All(docs)
	})
}

func mapError(err error, id bson.ObjectId, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mgo.ErrNotFound) {
		return errors.NotFoundf("user %q", id.Hex())
	}
	return errors.Annotatef(err, "%s user %q", op, id.Hex())
}
