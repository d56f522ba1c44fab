// Package config loads the small set of settings the layered-storage core
// needs at construction time: where layers live on disk, how large a file
// may be before it stops being eligible for index inlining, and the DSN
// for the default SQLite-backed index store.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the set of environment-driven settings the core needs.
type Config struct {
	// RootDir is the base directory under which layer subtrees are
	// created, one subdirectory per layer id.
	RootDir string `env:"LAYEREDSTORE_ROOT_DIR,required,notEmpty"`
	// IndexDSN is the data source name passed to index/sqlitestore.Open.
	IndexDSN string `env:"LAYEREDSTORE_INDEX_DSN" envDefault:"file:index.sqlite"`
	// InlineMaxBytes is the size threshold (in bytes) under which a moved-
	// in file is eligible for index inlining. Zero disables inlining.
	InlineMaxBytes int64 `env:"LAYEREDSTORE_INLINE_MAX_BYTES" envDefault:"0"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `env:"LAYEREDSTORE_LOG_LEVEL" envDefault:"error"`
}

// Load reads a Config from the process environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}
