// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package config

import (
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
)

// ConfigFileKey names the flag that points at a YAML settings file.
const ConfigFileKey = "config"

// Flags binds command line flags for a subset of the settings. Flags that
// are set on the command line override both the defaults and the file.
type Flags struct {
	flags *gnuflag.FlagSet
	path  string
	given Config
}

// NewFlags registers the --config flag and one flag per key on f.
func NewFlags(f *gnuflag.FlagSet, keys ...string) *Flags {
	fl := &Flags{flags: f}
	defaults := Default()
	f.StringVar(&fl.path, ConfigFileKey, "", "path to a YAML settings file")
	for _, key := range keys {
		switch key {
		case AMQPURLKey:
			f.StringVar(&fl.given.AMQPURL, key, defaults.AMQPURL, "message broker URL")
		case MongoHostKey:
			f.StringVar(&fl.given.MongoHost, key, defaults.MongoHost, "MongoDB host")
		case MongoPortKey:
			f.IntVar(&fl.given.MongoPort, key, defaults.MongoPort, "MongoDB port")
		case MongoDatabaseKey:
			f.StringVar(&fl.given.MongoDatabase, key, defaults.MongoDatabase, "MongoDB database name")
		case MongoCollectionKey:
			f.StringVar(&fl.given.MongoCollection, key, defaults.MongoCollection, "MongoDB collection name")
		case MongoTimeoutKey:
			f.DurationVar(&fl.given.MongoTimeout, key, defaults.MongoTimeout, "MongoDB dial timeout")
		case PortKey:
			f.IntVar(&fl.given.Port, key, defaults.Port, "HTTP listen port")
		case MetricsPortKey:
			f.IntVar(&fl.given.MetricsPort, key, defaults.MetricsPort, "metrics listen port, 0 to disable")
		case StaticDirKey:
			f.StringVar(&fl.given.StaticDir, key, defaults.StaticDir, "directory of front end files served at /")
		case StoreKey:
			f.StringVar(&fl.given.Store, key, defaults.Store, `user store, "mongodb" or "memory"`)
		case LogFileKey:
			f.StringVar(&fl.given.LogFile, key, defaults.LogFile, "file to write JSON log lines to")
		case LoggingConfigKey:
			f.StringVar(&fl.given.LoggingConfig, key, defaults.LoggingConfig, "logging configuration")
		}
	}
	return fl
}

// Resolve returns the settings after the file and flags are applied. It
// must be called after the flags are parsed.
func (fl *Flags) Resolve() (Config, error) {
	cfg := Default()
	if fl.path != "" {
		var err error
		if cfg, err = ReadFile(fl.path); err != nil {
			return Config{}, errors.Trace(err)
		}
	}
	fl.flags.Visit(func(f *gnuflag.Flag) {
		override(&cfg, fl.given, f.Name)
	})
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, nil
}

func override(dst *Config, src Config, key string) {
	switch key {
	case AMQPURLKey:
		dst.AMQPURL = src.AMQPURL
	case MongoHostKey:
		dst.MongoHost = src.MongoHost
	case MongoPortKey:
		dst.MongoPort = src.MongoPort
	case MongoDatabaseKey:
		dst.MongoDatabase = src.MongoDatabase
	case MongoCollectionKey:
		dst.MongoCollection = src.MongoCollection
	case MongoTimeoutKey:
		dst.MongoTimeout = src.MongoTimeout
	case PortKey:
		dst.Port = src.Port
	case MetricsPortKey:
		dst.MetricsPort = src.MetricsPort
	case StaticDirKey:
		dst.StaticDir = src.StaticDir
	case StoreKey:
		dst.Store = src.Store
	case LogFileKey:
		dst.LogFile = src.LogFile
	case LoggingConfigKey:
		dst.LoggingConfig = src.LoggingConfig
	}
}
