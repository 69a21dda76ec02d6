package chunkstore

import (
	"context"
	"sort"
	"sync"

	"github.com/aerolex/aerolex/pkg/types"
)

// MemoryStore is an in-memory Store for tests and small corpora.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    map[string]types.Chunk
	regs      map[string]types.Regulation
	versions  map[string][]types.RegulationVersion
}

// NewMemoryStore creates an empty in-memory store for the given embedding
// dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		chunks:    make(map[string]types.Chunk),
		regs:      make(map[string]types.Regulation),
		versions:  make(map[string][]types.RegulationVersion),
	}
}

func (s *MemoryStore) AppendChunks(ctx context.Context, chunks []types.Chunk) error {
	if err := validateBatch(chunks, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		s.chunks[chunks[i].ID] = chunks[i]
	}
	return nil
}

func (s *MemoryStore) Chunk(ctx context.Context, id string) (*types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "chunk", ID: id}
	}
	out := c
	return &out, nil
}

func (s *MemoryStore) ForEachChunk(ctx context.Context, fn func(*types.Chunk) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	for _, id := range ids {
		c, err := s.Chunk(ctx, id)
		if err != nil {
			continue // raced with nothing; chunks are never deleted
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) CountChunks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemoryStore) SaveRegulation(ctx context.Context, reg types.Regulation) error {
	if err := reg.Validate(); err != nil {
		return &types.InvalidInputError{Reason: "regulation", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[reg.ID] = reg
	return nil
}

func (s *MemoryStore) SaveVersion(ctx context.Context, v types.RegulationVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.versions[v.RegulationID]
	for i := range list {
		if list[i].Seq == v.Seq {
			list[i] = v
			return nil
		}
	}
	s.versions[v.RegulationID] = append(list, v)
	return nil
}

func (s *MemoryStore) ForEachRegulation(ctx context.Context, fn func(types.Regulation, []types.RegulationVersion) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.regs))
	for id := range s.regs {
		ids = append(ids, id)
	}
	regs := make([]types.Regulation, 0, len(ids))
	versions := make([][]types.RegulationVersion, 0, len(ids))
	sort.Strings(ids)
	for _, id := range ids {
		regs = append(regs, s.regs[id])
		vs := make([]types.RegulationVersion, len(s.versions[id]))
		copy(vs, s.versions[id])
		versions = append(versions, vs)
	}
	s.mu.RUnlock()

	for i := range regs {
		if err := fn(regs[i], versions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Dimension() int { return s.dimension }

func (s *MemoryStore) Close() error { return nil }
