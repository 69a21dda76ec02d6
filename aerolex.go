package aerolex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aerolex/aerolex/pkg/alert"
	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/config"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/ledger"
	"github.com/aerolex/aerolex/pkg/lineage"
	"github.com/aerolex/aerolex/pkg/logger"
	"github.com/aerolex/aerolex/pkg/planner"
	"github.com/aerolex/aerolex/pkg/telemetry"
	"github.com/aerolex/aerolex/pkg/types"
)

// Client is the main implementation of the Engine interface. It owns the
// version ledger, the durable chunk store, the approximate index, and the
// query planner, and keeps them consistent through every mutation.
type Client struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	store    chunkstore.Store
	idx      *swapIndex
	searcher index.Index // idx, possibly wrapped with a circuit breaker
	planner  *planner.Planner
	lineage  lineage.Recorder
	logger   *slog.Logger
	queryLog *telemetry.QueryLog
	errLog   *telemetry.ParquetHandler

	mu sync.Mutex // serializes ingest persistence and rebuilds
}

// New creates a Client from configuration, restores the ledger and index
// from the chunk store, and is ready to serve queries when it returns.
func New(cfg *config.Config) (*Client, error) {
	log, errLog, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	var alerter alert.Alerter = &alert.NoOpAlerter{}
	if cfg.Alert.Enabled {
		alerter = alert.NewEmailAlerter(cfg.Alert)
	}

	recorder, err := lineage.NewRecorder(cfg.Lineage)
	if err != nil {
		return nil, fmt.Errorf("failed to create lineage recorder: %w", err)
	}

	store, err := chunkstore.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	led := ledger.New(ledger.Options{
		Lineage: recorder,
		Alerter: alerter,
		Logger:  log,
	})

	idxCfg := cfg.Index
	idxCfg.Dimension = store.Dimension()
	inner, err := index.New(idxCfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	idx := newSwapIndex(inner)

	var searcher index.Index = idx
	if cfg.CircuitBreaker.Enabled {
		searcher = index.NewBreakerIndex(idx, cfg.CircuitBreaker, alerter, log, "index-search")
	}

	c := &Client{
		cfg:     cfg,
		ledger:  led,
		store:   store,
		idx:     idx,
		logger:  log,
		lineage: recorder,
		errLog:  errLog,
	}
	c.searcher = searcher

	var queryLog planner.QueryLogger
	if cfg.Telemetry.Enabled {
		ql, err := telemetry.NewQueryLog(cfg.Telemetry.ParquetPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		c.queryLog = ql
		queryLog = ql
	}

	c.planner = planner.New(planner.Options{
		Ledger:   led,
		Store:    store,
		Index:    searcher,
		Config:   cfg.Search,
		Logger:   log,
		QueryLog: queryLog,
	})

	if err := c.restore(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to restore corpus: %w", err)
	}
	return c, nil
}

func buildLogger(cfg *config.Config) (*slog.Logger, *telemetry.ParquetHandler, error) {
	level := logger.ParseLevel(cfg.Log.Level)
	handler := logger.NewDefaultLogger(level).Handler()
	if !cfg.Telemetry.Enabled {
		return slog.New(handler), nil, nil
	}
	errLog, err := telemetry.NewParquetHandler(handler, cfg.Telemetry.ParquetPath)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(errLog), errLog, nil
}

// restore rebuilds the in-memory ledger and the index from the chunk store.
func (c *Client) restore(ctx context.Context) error {
	counts := make(map[string]map[int]int)
	ids := make([]string, 0)
	vectors := make([][]float32, 0)

	err := c.store.ForEachChunk(ctx, func(chunk *types.Chunk) error {
		byVersion, ok := counts[chunk.RegulationID]
		if !ok {
			byVersion = make(map[int]int)
			counts[chunk.RegulationID] = byVersion
		}
		byVersion[chunk.VersionSeq]++
		ids = append(ids, chunk.ID)
		vectors = append(vectors, chunk.Embedding)
		return nil
	})
	if err != nil {
		return err
	}

	err = c.store.ForEachRegulation(ctx, func(reg types.Regulation, versions []types.RegulationVersion) error {
		return c.ledger.Restore(reg, versions, counts[reg.ID])
	})
	if err != nil {
		return err
	}

	if err := c.idx.AddBatch(ids, vectors); err != nil {
		return err
	}
	if len(ids) > 0 {
		c.logger.Info("corpus restored",
			"regulations", len(counts), "chunks", len(ids))
	}
	return nil
}

// IngestVersion registers a new version of a regulation together with its
// embedded chunks, in one call. The regulation is created on first use. The
// version enters the ledger first; chunks are then persisted, indexed, and
// counted. Chunk validation runs before the version registration so a
// malformed batch leaves the ledger untouched.
func (c *Client) IngestVersion(ctx context.Context, reg types.Regulation, d types.VersionDescriptor, chunks []types.ChunkInput) (*types.RegulationVersion, error) {
	if err := c.validateInputs(chunks); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.ledger.EnsureRegulation(reg)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveRegulation(ctx, stored); err != nil {
		return nil, err
	}

	v, err := c.ledger.RegisterVersion(ctx, reg.ID, d)
	if err != nil {
		return nil, err
	}

	if err := c.attachChunks(ctx, v, chunks); err != nil {
		return nil, err
	}
	if err := c.persistVersions(ctx, reg.ID); err != nil {
		return nil, err
	}

	c.logger.Info("chunks ingested",
		"regulation_id", reg.ID, "seq", v.Seq, "count", len(chunks))
	return v, nil
}

// InsertHistoricalVersion backfills a version into the middle of a chain,
// with its chunks.
func (c *Client) InsertHistoricalVersion(ctx context.Context, regID string, d types.VersionDescriptor, chunks []types.ChunkInput) (*types.RegulationVersion, error) {
	if err := c.validateInputs(chunks); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.ledger.InsertHistoricalVersion(ctx, regID, d)
	if err != nil {
		return nil, err
	}
	if err := c.attachChunks(ctx, v, chunks); err != nil {
		return nil, err
	}
	if err := c.persistVersions(ctx, regID); err != nil {
		return nil, err
	}
	return v, nil
}

// ActivateDraft promotes a previously ingested draft version to active.
func (c *Client) ActivateDraft(ctx context.Context, regID string, seq int) (*types.RegulationVersion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.ledger.ActivateDraft(ctx, regID, seq)
	if err != nil {
		return nil, err
	}
	if err := c.persistVersions(ctx, regID); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) validateInputs(chunks []types.ChunkInput) error {
	dim := c.store.Dimension()
	for i := range chunks {
		if chunks[i].Text == "" {
			return &types.InvalidInputError{Reason: fmt.Sprintf("chunk %d has no text", i)}
		}
		if len(chunks[i].Embedding) != dim {
			return &types.InvalidInputError{
				Reason: fmt.Sprintf("chunk %d has embedding dimension %d, store expects %d",
					i, len(chunks[i].Embedding), dim),
			}
		}
	}
	return nil
}

// attachChunks persists and indexes the chunk batch for a version.
func (c *Client) attachChunks(ctx context.Context, v *types.RegulationVersion, inputs []types.ChunkInput) error {
	if len(inputs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	chunks := make([]types.Chunk, len(inputs))
	ids := make([]string, len(inputs))
	vectors := make([][]float32, len(inputs))
	for i, in := range inputs {
		id := uuid.New().String()
		chunks[i] = types.Chunk{
			ID:           id,
			RegulationID: v.RegulationID,
			VersionSeq:   v.Seq,
			Ordinal:      i,
			Text:         in.Text,
			Embedding:    in.Embedding,
			TokenCount:   in.TokenCount,
			Fields:       in.Fields,
			CreatedAt:    now,
		}
		ids[i] = id
		vectors[i] = in.Embedding
	}

	if err := c.store.AppendChunks(ctx, chunks); err != nil {
		return err
	}
	if err := c.idx.AddBatch(ids, vectors); err != nil {
		return err
	}
	return c.ledger.AddChunks(v.RegulationID, v.Seq, len(chunks))
}

// persistVersions writes the regulation's full version list back to the
// store. Supersessions mutate the predecessor's record too, so rewriting
// the whole list is the simplest way to stay consistent.
func (c *Client) persistVersions(ctx context.Context, regID string) error {
	versions, err := c.ledger.History(regID)
	if err != nil {
		return err
	}
	for i := range versions {
		if err := c.store.SaveVersion(ctx, versions[i]); err != nil {
			return err
		}
	}
	return nil
}

// Query runs a filtered similarity search. See planner.QueryOptions for the
// temporal and metadata knobs.
func (c *Client) Query(ctx context.Context, embedding []float32, opts planner.QueryOptions) ([]types.QueryResult, error) {
	return c.planner.Query(ctx, embedding, opts)
}

// Regulation returns the stored regulation record.
func (c *Client) Regulation(regID string) (types.Regulation, error) {
	return c.ledger.Regulation(regID)
}

// Regulations returns the IDs of all known regulations.
func (c *Client) Regulations() []string {
	return c.ledger.Regulations()
}

// History returns a regulation's versions ordered by effective date, drafts
// last.
func (c *Client) History(regID string) ([]types.RegulationVersion, error) {
	return c.ledger.History(regID)
}

// VersionAsOf returns the version of a regulation in force at instant t.
func (c *Client) VersionAsOf(regID string, t time.Time) (*types.RegulationVersion, error) {
	return c.ledger.VersionAsOf(regID, t)
}

// Lineage returns the recorded supersession history of a regulation.
func (c *Client) Lineage(ctx context.Context, regID string) ([]types.LineageRecord, error) {
	return c.lineage.History(ctx, regID)
}

// Stats returns corpus-wide counts.
func (c *Client) Stats() ledger.Stats {
	return c.ledger.Summary()
}

// RebuildIndex builds a fresh index from the chunk store and swaps it in
// atomically. Queries keep running against the old index during the
// rebuild; tombstoned entries are gone afterwards.
func (c *Client) RebuildIndex(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idxCfg := c.cfg.Index
	idxCfg.Dimension = c.store.Dimension()
	fresh, err := index.New(idxCfg)
	if err != nil {
		return err
	}

	count := 0
	err = c.store.ForEachChunk(ctx, func(chunk *types.Chunk) error {
		count++
		return fresh.Add(chunk.ID, chunk.Embedding)
	})
	if err != nil {
		_ = fresh.Close()
		return err
	}

	old := c.idx.swap(fresh)
	_ = old.Close()
	c.logger.Info("index rebuilt", "chunks", count)
	return nil
}

// Close flushes telemetry and releases every backend resource.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if c.queryLog != nil {
		if err := c.queryLog.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.errLog != nil {
		if err := c.errLog.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.idx.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.lineage.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// swapIndex is an atomically swappable indirection over an index, so a
// rebuild can replace the whole structure without interrupting searches in
// flight on the old one.
type swapIndex struct {
	ptr atomic.Pointer[index.Index]
}

func newSwapIndex(inner index.Index) *swapIndex {
	s := &swapIndex{}
	s.ptr.Store(&inner)
	return s
}

func (s *swapIndex) swap(next index.Index) index.Index {
	old := s.ptr.Swap(&next)
	return *old
}

func (s *swapIndex) current() index.Index { return *s.ptr.Load() }

func (s *swapIndex) Add(id string, vector []float32) error {
	return s.current().Add(id, vector)
}

func (s *swapIndex) AddBatch(ids []string, vectors [][]float32) error {
	return s.current().AddBatch(ids, vectors)
}

func (s *swapIndex) Search(ctx context.Context, query []float32, p index.SearchParams) ([]index.Hit, error) {
	return s.current().Search(ctx, query, p)
}

func (s *swapIndex) Delete(id string) { s.current().Delete(id) }

func (s *swapIndex) Len() int { return s.current().Len() }

func (s *swapIndex) Close() error { return s.current().Close() }
