// Package chunkstore persists the engine's source of truth: regulations,
// their versions, and embedded chunks. Chunks are append-only and never
// mutated or deleted; version records are rewritten only for status
// transitions. The approximate index is a derived projection of this store
// and can always be rebuilt from it, never the reverse.
package chunkstore

import (
	"context"

	"github.com/aerolex/aerolex/pkg/types"
)

// Store is the durable record of the corpus.
type Store interface {
	// AppendChunks validates and stores a batch of chunks. Every chunk's
	// embedding must match the configured dimension; validation happens
	// before any write, so a failed batch stores nothing.
	AppendChunks(ctx context.Context, chunks []types.Chunk) error

	// Chunk returns one chunk by ID.
	Chunk(ctx context.Context, id string) (*types.Chunk, error)

	// ForEachChunk iterates every stored chunk, used for index rebuilds.
	// Iteration stops at the first error from fn.
	ForEachChunk(ctx context.Context, fn func(*types.Chunk) error) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// SaveRegulation stores a regulation record.
	SaveRegulation(ctx context.Context, reg types.Regulation) error

	// SaveVersion stores a version record, overwriting any previous record
	// for the same (regulation, seq). Versions are append-only except for
	// status transitions.
	SaveVersion(ctx context.Context, v types.RegulationVersion) error

	// ForEachRegulation iterates every regulation with its versions, used to
	// rebuild the ledger at startup.
	ForEachRegulation(ctx context.Context, fn func(types.Regulation, []types.RegulationVersion) error) error

	// Dimension returns the configured embedding dimensionality.
	Dimension() int

	// Close releases resources.
	Close() error
}

// validateBatch runs all per-chunk checks before any mutation.
func validateBatch(chunks []types.Chunk, dimension int) error {
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			return &types.InvalidInputError{Reason: "chunk without ID"}
		}
		if err := c.Validate(); err != nil {
			return &types.InvalidInputError{Reason: "chunk " + c.ID, Err: err}
		}
		if len(c.Embedding) != dimension {
			return &types.InvalidInputError{
				Reason: "chunk " + c.ID + ": embedding dimension mismatch",
			}
		}
	}
	return nil
}
