// Package config loads engine configuration from TOML and opens the
// configured store backend.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/moltbot/bankcore/store"
	"github.com/moltbot/bankcore/store/memory"
	"github.com/moltbot/bankcore/store/mongo"
	"github.com/moltbot/bankcore/store/sqlite"
)

// Backend selects the store adapter.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendMongo  Backend = "mongo"
)

// Config is the engine configuration.
//
// Example:
//
//	backend = "sqlite"
//
//	[sqlite]
//	path = "/var/lib/bankcore/ledger.db"
//
//	[memory]
//	lock_timeout = "3s"
type Config struct {
	Backend Backend      `toml:"backend"`
	Memory  MemoryConfig `toml:"memory"`
	SQLite  SQLiteConfig `toml:"sqlite"`
	Mongo   MongoConfig  `toml:"mongo"`
}

// MemoryConfig configures the in-memory adapter.
type MemoryConfig struct {
	LockTimeout duration `toml:"lock_timeout"`
}

// SQLiteConfig configures the SQLite adapter.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// MongoConfig configures the MongoDB adapter.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// duration wraps time.Duration so TOML files can say "3s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns a memory-backed configuration.
func Default() Config {
	return Config{Backend: BackendMemory}
}

// Load reads and validates a TOML config file.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for the selected backend.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("config: sqlite backend requires sqlite.path")
		}
		return nil
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("config: mongo backend requires mongo.uri")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("config: mongo backend requires mongo.database")
		}
		return nil
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}

// OpenStore opens the configured store. The caller owns the returned store
// and closes it through the engine's Stop.
func (c Config) OpenStore() (store.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Backend {
	case BackendMemory:
		var opts []memory.Option
		if c.Memory.LockTimeout.Duration > 0 {
			opts = append(opts, memory.WithLockTimeout(c.Memory.LockTimeout.Duration))
		}
		return memory.New(opts...), nil
	case BackendSQLite:
		return sqlite.Open(c.SQLite.Path)
	case BackendMongo:
		return mongo.Open(c.Mongo.URI, c.Mongo.Database)
	default:
		return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}
