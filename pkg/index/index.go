// Package index wraps approximate nearest-neighbor search behind a small
// adapter interface. The index is a derived, rebuildable projection of the
// chunk store: insertion is append-only, and removal is tombstoning
// filtered at search time, never destructive removal that could corrupt an
// in-flight search.
//
// Two query strategies are supported. Pre-filter ranks only the admissible
// subset exactly, which stays correct however sparse the subset is.
// Post-filter over-fetches unfiltered ANN candidates with a growing
// expansion factor and filters afterwards, which is cheap when most of the
// index is admissible. Either way a short result (fewer than k hits) is a
// valid outcome, not an error.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aerolex/aerolex/pkg/types"
)

// Strategy selects how a predicate combines with similarity search.
type Strategy string

const (
	// StrategyPreFilter restricts ranking to chunks satisfying the
	// predicate. Exact temporal correctness at scan cost.
	StrategyPreFilter Strategy = "pre-filter"
	// StrategyPostFilter fetches unfiltered candidates with expansion and
	// filters afterwards.
	StrategyPostFilter Strategy = "post-filter"
)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("index is closed")

// Hit is one search result.
type Hit struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Predicate admits or rejects a chunk by ID. The planner builds it from the
// temporal filter evaluator and a metadata lookup.
type Predicate func(chunkID string) bool

// SearchParams parameterizes one search call.
type SearchParams struct {
	K         int
	Predicate Predicate // nil admits everything
	Strategy  Strategy
	MinScore  float64
}

// Index is the adapter contract. Results are ordered by descending score,
// contain no duplicate chunk IDs, and never exceed K entries. Equal scores
// tie-break by chunk ID ascending, including at the K truncation boundary.
type Index interface {
	// Add inserts one embedding. Adding an existing ID clears its tombstone
	// and replaces the vector.
	Add(id string, vector []float32) error

	// AddBatch inserts many embeddings; ids and vectors correspond by
	// position.
	AddBatch(ids []string, vectors [][]float32) error

	// Search returns up to K admissible hits for the query vector.
	Search(ctx context.Context, query []float32, p SearchParams) ([]Hit, error)

	// Delete tombstones an ID. Tombstoned entries are skipped at search
	// time; the entry itself stays until the next rebuild.
	Delete(id string)

	// Len returns the number of live (non-tombstoned) entries.
	Len() int

	// Close releases resources.
	Close() error
}

// Backend selects the index implementation.
type Backend string

const (
	// BackendBrute is an exact in-memory scan. The test baseline and the
	// reference for ranking correctness.
	BackendBrute Backend = "brute"
	// BackendHNSW is an in-process HNSW graph.
	BackendHNSW Backend = "hnsw"
)

// Config configures an index.
type Config struct {
	Backend   Backend `mapstructure:"backend"`
	Dimension int     `mapstructure:"dimension"`

	// HNSW graph parameters, mirroring the usual m / ef_search knobs.
	M        int `mapstructure:"m"`
	EfSearch int `mapstructure:"ef_search"`

	// Seed makes HNSW layer assignment reproducible. 0 keeps the default
	// source; tests set it for deterministic rankings.
	Seed int64 `mapstructure:"seed"`

	// InitialExpansion is the starting post-filter over-fetch multiple.
	InitialExpansion int `mapstructure:"initial_expansion"`
	// MaxExpansion caps the over-fetch multiple.
	MaxExpansion int `mapstructure:"max_expansion"`
}

func (c Config) withDefaults() Config {
	if c.M <= 0 {
		c.M = 16
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 64
	}
	if c.InitialExpansion <= 0 {
		c.InitialExpansion = 4
	}
	if c.MaxExpansion <= 0 {
		c.MaxExpansion = 64
	}
	return c
}

// New creates an index from configuration.
func New(cfg Config) (Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", cfg.Dimension)
	}
	cfg = cfg.withDefaults()

	switch cfg.Backend {
	case BackendBrute:
		return NewBrute(cfg), nil
	case BackendHNSW, "":
		return NewHNSW(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s (supported: brute, hnsw)", cfg.Backend)
	}
}

func checkDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return &types.InvalidInputError{
			Reason: fmt.Sprintf("embedding has dimension %d, index expects %d", len(vector), dimension),
		}
	}
	return nil
}

// rank sorts hits by score descending with chunk ID ascending as the
// deterministic tie-break, applies the score floor, and truncates to k.
// The adapter sees only chunk IDs, so when equal-score hits straddle the k
// boundary, membership is decided by chunk ID; the planner's richer
// ordering (effective date before chunk ID) applies among the survivors
// it gets back, not to which hits survive.
func rank(hits []Hit, k int, minScore float64) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	out := hits[:0]
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		out = append(out, h)
		if len(out) == k {
			break
		}
	}
	return out
}
