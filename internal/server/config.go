package server

import (
	"time"

	"redis/internal/aof"
	"redis/internal/db"
	"redis/internal/storage"
)

// Config holds every flag-configurable setting (§4.13/§6.4), parsed by
// cmd/server/main.go with the standard flag package — config-file parsing
// is an explicit non-goal, so every key here has a command-line flag and
// nothing else.
type Config struct {
	Bind string
	Port int

	MaxConnections int
	ReadTimeout    time.Duration // client idle timeout (§5 "Cancellation and timeouts")

	Databases int

	MaxMemoryBytes   int64
	MaxMemoryPolicy  string
	MaxMemorySamples int

	AppendOnly            bool
	AppendFsync           string
	AutoAOFRewritePercent int
	AutoAOFRewriteMinSize int64
	AOFPath               string

	HashMaxEntries int
	HashMaxValue   int
	ListMaxEntries int
	ListMaxValue   int
	SetMaxIntset   int
	ZSetMaxEntries int
	ZSetMaxValue   int

	RequirePass string
}

// DefaultConfig mirrors the teacher's DefaultConfig pattern: every field
// pre-populated with the value spec.md names as the default for that key.
func DefaultConfig() *Config {
	return &Config{
		Bind: "0.0.0.0",
		Port: 6379,

		MaxConnections: 10000,
		ReadTimeout:    0, // 0 disables the idle timeout

		Databases: 16,

		MaxMemoryBytes:   0,
		MaxMemoryPolicy:  "noeviction",
		MaxMemorySamples: 5,

		AppendOnly:            false,
		AppendFsync:           "everysec",
		AutoAOFRewritePercent: 100,
		AutoAOFRewriteMinSize: 64 * 1024 * 1024,
		AOFPath:               "appendonly.aof",

		HashMaxEntries: 128,
		HashMaxValue:   64,
		ListMaxEntries: 128,
		ListMaxValue:   64,
		SetMaxIntset:   512,
		ZSetMaxEntries: 128,
		ZSetMaxValue:   64,
	}
}

// Limits projects the encoding-promotion thresholds out of Config into the
// storage.Limits the typed ops (C6) are parameterized on.
func (c *Config) Limits() storage.Limits {
	return storage.Limits{
		HashMaxEntries: c.HashMaxEntries,
		HashMaxValue:   c.HashMaxValue,
		ListMaxEntries: c.ListMaxEntries,
		ListMaxValue:   c.ListMaxValue,
		SetMaxIntset:   c.SetMaxIntset,
		ZSetMaxEntries: c.ZSetMaxEntries,
		ZSetMaxValue:   c.ZSetMaxValue,
	}
}

// EvictionPolicy resolves the configured maxmemory-policy string, falling
// back to noeviction on an unrecognized value rather than refusing to
// start.
func (c *Config) EvictionPolicy() db.EvictionPolicy {
	if p, ok := db.ParseEvictionPolicy(c.MaxMemoryPolicy); ok {
		return p
	}
	return db.PolicyNoEviction
}

// AOFConfig projects the AOF-related flags into aof.Config.
func (c *Config) AOFConfig() aof.Config {
	cfg := aof.DefaultConfig()
	cfg.Enabled = c.AppendOnly
	cfg.Filepath = c.AOFPath
	switch c.AppendFsync {
	case "always":
		cfg.SyncPolicy = aof.SyncAlways
	case "no":
		cfg.SyncPolicy = aof.SyncNo
	default:
		cfg.SyncPolicy = aof.SyncEverySecond
	}
	return cfg
}
