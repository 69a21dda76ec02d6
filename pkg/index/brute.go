package index

import (
	"context"
	"sync"

	"github.com/aerolex/aerolex/pkg/types"
)

// Brute is an exact in-memory index. It scans every live vector per search,
// so it only suits small corpora and tests, but its rankings are the ground
// truth the approximate backend is measured against.
type Brute struct {
	mu        sync.RWMutex
	cfg       Config
	vectors   map[string][]float32
	tombstone map[string]struct{}
	closed    bool
}

// NewBrute creates an exact scan index.
func NewBrute(cfg Config) *Brute {
	return &Brute{
		cfg:       cfg.withDefaults(),
		vectors:   make(map[string][]float32),
		tombstone: make(map[string]struct{}),
	}
}

func (b *Brute) Add(id string, vector []float32) error {
	if id == "" {
		return &types.InvalidInputError{Reason: "chunk ID is empty"}
	}
	if err := checkDimension(vector, b.cfg.Dimension); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	b.vectors[id] = v
	delete(b.tombstone, id)
	return nil
}

func (b *Brute) AddBatch(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return &types.InvalidInputError{Reason: "ids and vectors length mismatch"}
	}
	for i := range ids {
		if err := b.Add(ids[i], vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *Brute) Delete(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.vectors[id]; ok {
		b.tombstone[id] = struct{}{}
	}
}

func (b *Brute) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vectors) - len(b.tombstone)
}

// Search ranks exactly. Both strategies produce identical results here; the
// distinction only matters for the approximate backend.
func (b *Brute) Search(ctx context.Context, query []float32, p SearchParams) ([]Hit, error) {
	if err := checkDimension(query, b.cfg.Dimension); err != nil {
		return nil, err
	}
	if p.K <= 0 {
		return nil, &types.InvalidInputError{Reason: "k must be positive"}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(b.vectors))
	for id, v := range b.vectors {
		if _, dead := b.tombstone[id]; dead {
			continue
		}
		if p.Predicate != nil && !p.Predicate(id) {
			continue
		}
		hits = append(hits, Hit{ChunkID: id, Score: cosineSimilarity(query, v)})
	}
	return rank(hits, p.K, p.MinScore), nil
}

func (b *Brute) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.vectors = nil
	b.tombstone = nil
	return nil
}
