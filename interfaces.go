package aerolex

import (
	"context"
	"time"

	"github.com/aerolex/aerolex/pkg/ledger"
	"github.com/aerolex/aerolex/pkg/planner"
	"github.com/aerolex/aerolex/pkg/types"
)

// This file defines focused interfaces that follow the Interface Segregation
// Principle. The full Engine interface is composed from these smaller
// interfaces; consumers should depend on the smallest one that meets their
// needs.

// Ingester provides the write side of the corpus: registering versions and
// their chunks.
type Ingester interface {
	// IngestVersion registers a new version of a regulation with its chunks.
	// The regulation is created on first use.
	IngestVersion(ctx context.Context, reg types.Regulation, d types.VersionDescriptor, chunks []types.ChunkInput) (*types.RegulationVersion, error)

	// InsertHistoricalVersion backfills a version between existing ones,
	// re-deriving the neighboring validity intervals.
	InsertHistoricalVersion(ctx context.Context, regID string, d types.VersionDescriptor, chunks []types.ChunkInput) (*types.RegulationVersion, error)

	// ActivateDraft promotes a draft version to active.
	ActivateDraft(ctx context.Context, regID string, seq int) (*types.RegulationVersion, error)
}

// Querier provides the read side: filtered similarity search and version
// lookups.
type Querier interface {
	// Query runs a similarity search restricted by temporal and metadata
	// constraints. Fewer than K results is a valid outcome.
	Query(ctx context.Context, embedding []float32, opts planner.QueryOptions) ([]types.QueryResult, error)

	// Regulation returns the stored regulation record.
	Regulation(regID string) (types.Regulation, error)

	// Regulations returns the IDs of all known regulations.
	Regulations() []string

	// History returns a regulation's versions ordered by effective date.
	History(regID string) ([]types.RegulationVersion, error)

	// VersionAsOf returns the version in force at instant t.
	VersionAsOf(regID string, t time.Time) (*types.RegulationVersion, error)

	// Lineage returns the recorded supersession history of a regulation.
	Lineage(ctx context.Context, regID string) ([]types.LineageRecord, error)
}

// Maintainer provides operational tasks.
type Maintainer interface {
	// Stats returns corpus-wide counts.
	Stats() ledger.Stats

	// RebuildIndex rebuilds the approximate index from the chunk store.
	RebuildIndex(ctx context.Context) error

	// Close flushes telemetry and releases resources.
	Close(ctx context.Context) error
}

// Engine is the full engine contract.
type Engine interface {
	Ingester
	Querier
	Maintainer
}

// Compile-time check that Client implements Engine.
var _ Engine = (*Client)(nil)
