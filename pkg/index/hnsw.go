package index

import (
	"context"
	"math/rand"
	"sync"

	"github.com/coder/hnsw"

	"github.com/aerolex/aerolex/pkg/types"
)

// HNSW is an in-process hierarchical navigable small world graph. A side
// table keeps every vector by chunk ID so pre-filter searches can rank the
// admissible subset exactly instead of probing the graph, and so scores can
// be recomputed as cosine similarity regardless of graph internals.
type HNSW struct {
	mu        sync.RWMutex
	cfg       Config
	graph     *hnsw.Graph[string]
	vectors   map[string][]float32
	tombstone map[string]struct{}
	closed    bool
}

// NewHNSW creates a graph-backed index.
func NewHNSW(cfg Config) *HNSW {
	cfg = cfg.withDefaults()
	g := hnsw.NewGraph[string]()
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Distance = hnsw.CosineDistance
	if cfg.Seed != 0 {
		g.Rng = rand.New(rand.NewSource(cfg.Seed))
	}
	return &HNSW{
		cfg:       cfg,
		graph:     g,
		vectors:   make(map[string][]float32),
		tombstone: make(map[string]struct{}),
	}
}

func (h *HNSW) Add(id string, vector []float32) error {
	if id == "" {
		return &types.InvalidInputError{Reason: "chunk ID is empty"}
	}
	if err := checkDimension(vector, h.cfg.Dimension); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	// Re-adding a key the graph already holds trips its insert invariant;
	// drop the old node first so the add is a replacement.
	if _, exists := h.vectors[id]; exists {
		h.graph.Delete(id)
	}
	h.graph.Add(hnsw.MakeNode(id, v))
	h.vectors[id] = v
	delete(h.tombstone, id)
	return nil
}

func (h *HNSW) AddBatch(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return &types.InvalidInputError{Reason: "ids and vectors length mismatch"}
	}
	for i := range ids {
		if err := h.Add(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (h *HNSW) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.vectors[id]; ok {
		h.tombstone[id] = struct{}{}
	}
}

func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors) - len(h.tombstone)
}

func (h *HNSW) Search(ctx context.Context, query []float32, p SearchParams) ([]Hit, error) {
	if err := checkDimension(query, h.cfg.Dimension); err != nil {
		return nil, err
	}
	if p.K <= 0 {
		return nil, &types.InvalidInputError{Reason: "k must be positive"}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.Strategy == StrategyPreFilter {
		return h.searchPreFilter(query, p), nil
	}
	return h.searchPostFilter(query, p), nil
}

// searchPreFilter ranks the admissible set exactly from the side table.
// Graph recall does not apply, so a chunk that satisfies the predicate is
// never missed however small the set is.
func (h *HNSW) searchPreFilter(query []float32, p SearchParams) []Hit {
	hits := make([]Hit, 0, p.K)
	for id, v := range h.vectors {
		if _, dead := h.tombstone[id]; dead {
			continue
		}
		if p.Predicate != nil && !p.Predicate(id) {
			continue
		}
		hits = append(hits, Hit{ChunkID: id, Score: cosineSimilarity(query, v)})
	}
	return rank(hits, p.K, p.MinScore)
}

// searchPostFilter over-fetches unfiltered graph candidates and filters
// afterwards. The fetch size starts at K times the initial expansion and
// doubles until K admissible hits are found, the cap is hit, or the fetch
// already covers the whole graph. Fewer than K survivors is a valid result.
func (h *HNSW) searchPostFilter(query []float32, p SearchParams) []Hit {
	total := len(h.vectors)
	if total == 0 {
		return []Hit{}
	}

	fetch := p.K * h.cfg.InitialExpansion
	maxFetch := p.K * h.cfg.MaxExpansion
	for {
		n := fetch
		if n > total {
			n = total
		}
		nodes := h.graph.Search(query, n)

		hits := make([]Hit, 0, p.K)
		for _, node := range nodes {
			id := node.Key
			if _, dead := h.tombstone[id]; dead {
				continue
			}
			if p.Predicate != nil && !p.Predicate(id) {
				continue
			}
			hits = append(hits, Hit{ChunkID: id, Score: cosineSimilarity(query, h.vectors[id])})
		}
		if len(hits) >= p.K || n >= total || fetch >= maxFetch {
			return rank(hits, p.K, p.MinScore)
		}
		fetch *= 2
	}
}

func (h *HNSW) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.graph = nil
	h.vectors = nil
	h.tombstone = nil
	return nil
}
