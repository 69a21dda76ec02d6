package types

import (
	"time"
)

// Chunk is a retrievable span of regulatory text belonging to exactly one
// RegulationVersion. Chunks are immutable once embedded: a new version of a
// regulation produces new chunks, and old chunks stay resolvable so that
// historical point-in-time queries keep working. Chunks are never deleted.
type Chunk struct {
	ID           string    `json:"id"`
	RegulationID string    `json:"regulation_id"`
	VersionSeq   int       `json:"version_seq"`

	// Ordinal is the chunk's position within the version, for reconstructing
	// document order.
	Ordinal int `json:"ordinal"`

	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding"`
	TokenCount int       `json:"token_count"`

	// Fields carries free-form filterable metadata such as aircraft_type or
	// operation_category.
	Fields map[string]string `json:"fields,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the chunk for required fields. Dimensionality is checked
// by the store, which knows the configured index dimension.
func (c *Chunk) Validate() error {
	if c.RegulationID == "" {
		return ErrEmptyRegulationID
	}
	if c.Text == "" {
		return ErrEmptyChunkText
	}
	if len(c.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	return nil
}

// ChunkInput is the ingestion-boundary form of a chunk: text plus a
// pre-computed embedding. The engine never computes embeddings itself.
type ChunkInput struct {
	Text       string            `json:"text"`
	Embedding  []float32         `json:"embedding"`
	TokenCount int               `json:"token_count"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// ChunkMetadata is the flattened view of a chunk joined with its owning
// version's temporal state. The filter evaluator operates on this view and
// nothing else, which keeps it a pure function.
type ChunkMetadata struct {
	ChunkID      string
	RegulationID string
	VersionSeq   int
	Ordinal      int
	TokenCount   int

	Status    VersionStatus
	Effective time.Time
	Expiry    *time.Time

	Category     string
	Jurisdiction string
	Fields       map[string]string
}

// QueryResult is one ranked retrieval hit with the owning version's
// temporal metadata attached for caller transparency.
type QueryResult struct {
	ChunkID      string        `json:"chunk_id"`
	RegulationID string        `json:"regulation_id"`
	VersionSeq   int           `json:"version_seq"`
	Ordinal      int           `json:"ordinal"`
	Text         string        `json:"text"`
	Score        float64       `json:"score"`
	Status       VersionStatus `json:"status"`
	Effective    time.Time     `json:"effective_date"`
	Expiry       *time.Time    `json:"expiry_date,omitempty"`

	Fields map[string]string `json:"fields,omitempty"`
}
