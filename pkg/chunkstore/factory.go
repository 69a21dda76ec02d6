package chunkstore

import (
	"fmt"
)

// StoreType selects the storage backend.
type StoreType string

const (
	// StoreTypeMemory keeps everything in process memory. Not durable.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeBadger persists to an embedded Badger database.
	StoreTypeBadger StoreType = "badger"
)

// Config configures the store backend.
type Config struct {
	// Type is "memory" or "badger" (default badger).
	Type StoreType `mapstructure:"type"`
	// Path is the data directory for the badger backend.
	Path string `mapstructure:"path"`
	// Dimension is the embedding vector dimensionality shared across the
	// corpus.
	Dimension int `mapstructure:"dimension"`
}

// NewStore creates a Store from configuration.
func NewStore(cfg Config) (Store, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("store dimension must be positive, got %d", cfg.Dimension)
	}

	switch cfg.Type {
	case StoreTypeMemory:
		return NewMemoryStore(cfg.Dimension), nil
	case StoreTypeBadger, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		return NewBadgerStore(cfg.Path, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unsupported store type: %s (supported: memory, badger)", cfg.Type)
	}
}
