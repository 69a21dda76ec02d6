// Package lineage persists the supersession history of regulations as an
// audit trail, independent of the ledger's own in-memory chains. The ledger
// emits one record per supersession; recorders store them append-only.
package lineage

import (
	"context"
	"fmt"

	"github.com/aerolex/aerolex/pkg/types"
)

// Recorder receives and stores supersession records.
type Recorder interface {
	// Record appends one supersession record.
	Record(ctx context.Context, rec types.LineageRecord) error

	// History returns all records for a regulation, oldest first.
	History(ctx context.Context, regulationID string) ([]types.LineageRecord, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// Backend selects the recorder implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendNeo4j  Backend = "neo4j"
)

// Config configures a lineage recorder.
type Config struct {
	Backend  Backend `mapstructure:"backend"`
	URI      string  `mapstructure:"uri"`
	Username string  `mapstructure:"username"`
	Password string  `mapstructure:"password"`
	Database string  `mapstructure:"database"`
}

// NewRecorder creates a recorder from configuration.
func NewRecorder(cfg Config) (Recorder, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryRecorder(), nil
	case BackendNeo4j:
		if cfg.URI == "" {
			return nil, fmt.Errorf("neo4j lineage backend requires a uri")
		}
		return NewNeo4jRecorder(cfg.URI, cfg.Username, cfg.Password, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported lineage backend: %s (supported: memory, neo4j)", cfg.Backend)
	}
}
