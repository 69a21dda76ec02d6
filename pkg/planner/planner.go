// Package planner turns a query embedding plus temporal and metadata
// constraints into ranked results. It composes the approximate index with
// the filter evaluator, chooses between the two filtering strategies using
// a selectivity estimate from the ledger, and retries transient index
// failures before giving up.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/filter"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/ledger"
	"github.com/aerolex/aerolex/pkg/types"
)

// Config tunes default query behavior.
type Config struct {
	// TopK is the default result count when a query does not set K.
	TopK int `mapstructure:"top_k"`
	// ScoreThreshold is the default minimum similarity score.
	ScoreThreshold float64 `mapstructure:"score_threshold"`
	// SelectivityThreshold picks the strategy: below it the admissible set
	// is considered sparse and pre-filter runs, at or above it post-filter.
	SelectivityThreshold float64 `mapstructure:"selectivity_threshold"`
	// MaxRetries bounds search attempts against the index.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = 0.7
	}
	if c.SelectivityThreshold == 0 {
		c.SelectivityThreshold = 0.5
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 50 * time.Millisecond
	}
	return c
}

// QueryLogEntry describes one executed query for telemetry.
type QueryLogEntry struct {
	At          time.Time
	AsOf        *time.Time
	K           int
	Strategy    index.Strategy
	Selectivity float64
	Hits        int
	Duration    time.Duration
}

// QueryLogger receives per-query telemetry. Implementations live in
// pkg/telemetry.
type QueryLogger interface {
	LogQuery(entry QueryLogEntry)
}

// QueryOptions parameterizes one query.
type QueryOptions struct {
	// AsOf requests point-in-time validity. Nil means present tense: only
	// chunks of currently active versions are admissible.
	AsOf *time.Time

	// K overrides the configured default result count.
	K int

	// Filter is an optional metadata predicate conjoined with the temporal
	// one.
	Filter filter.Predicate

	// Strategy forces pre- or post-filter instead of the selectivity
	// heuristic.
	Strategy index.Strategy

	// MinScore overrides the configured score threshold. A value of -1 or
	// lower disables the threshold entirely, since cosine similarity never
	// goes below -1.
	MinScore *float64
}

// Planner executes retrieval queries.
type Planner struct {
	ledger   *ledger.Ledger
	store    chunkstore.Store
	idx      index.Index
	cfg      Config
	logger   *slog.Logger
	queryLog QueryLogger
}

// Options configures a Planner.
type Options struct {
	Ledger *ledger.Ledger
	Store  chunkstore.Store
	Index  index.Index
	Config Config
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// QueryLog receives per-query telemetry. Optional.
	QueryLog QueryLogger
}

// New creates a Planner.
func New(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		ledger:   opts.Ledger,
		store:    opts.Store,
		idx:      opts.Index,
		cfg:      opts.Config.withDefaults(),
		logger:   logger,
		queryLog: opts.QueryLog,
	}
}

// Query returns up to K chunks ranked by similarity, restricted to the
// admissible set under the query's temporal and metadata constraints.
// Fewer than K results is a valid outcome. Version state is read once per
// version and cached for the duration of the query, so a supersession
// committed mid-query cannot produce a result set that mixes both states
// of the same regulation.
func (p *Planner) Query(ctx context.Context, embedding []float32, opts QueryOptions) ([]types.QueryResult, error) {
	start := time.Now()

	k := opts.K
	if k <= 0 {
		k = p.cfg.TopK
	}
	minScore := p.cfg.ScoreThreshold
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}

	view := newCorpusView(ctx, p.ledger, p.store)
	admissible := func(chunkID string) bool {
		m, ok := view.metadata(chunkID)
		if !ok {
			return false
		}
		return filter.Matches(m, opts.AsOf, opts.Filter)
	}

	strategy := opts.Strategy
	selectivity := -1.0
	if strategy == "" {
		selectivity = p.ledger.Selectivity(opts.AsOf)
		if selectivity < p.cfg.SelectivityThreshold {
			strategy = index.StrategyPreFilter
		} else {
			strategy = index.StrategyPostFilter
		}
	}

	hits, err := p.searchWithRetry(ctx, embedding, index.SearchParams{
		K:         k,
		Predicate: admissible,
		Strategy:  strategy,
		MinScore:  minScore,
	})
	if err != nil {
		return nil, err
	}

	results, err := p.resolve(view, hits)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("query executed",
		"k", k,
		"strategy", string(strategy),
		"selectivity", selectivity,
		"hits", len(results),
		"duration", time.Since(start))
	if p.queryLog != nil {
		p.queryLog.LogQuery(QueryLogEntry{
			At:          start,
			AsOf:        opts.AsOf,
			K:           k,
			Strategy:    strategy,
			Selectivity: selectivity,
			Hits:        len(results),
			Duration:    time.Since(start),
		})
	}
	return results, nil
}

// searchWithRetry runs the index search with bounded retries and
// exponential backoff. Exhausted retries surface as a
// RetrievalUnavailableError wrapping the last failure.
func (p *Planner) searchWithRetry(ctx context.Context, embedding []float32, params index.SearchParams) ([]index.Hit, error) {
	var lastErr error
	backoff := p.cfg.RetryBackoff

	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		hits, err := p.idx.Search(ctx, embedding, params)
		if err == nil {
			return hits, nil
		}

		var invalid *types.InvalidInputError
		if errors.As(err, &invalid) {
			return nil, err
		}
		lastErr = err
		p.logger.Warn("index search failed",
			"attempt", attempt,
			"max_retries", p.cfg.MaxRetries,
			"error", err)

		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, &types.RetrievalUnavailableError{Attempts: p.cfg.MaxRetries, Err: lastErr}
}

// resolve materializes hits into full results and applies the final
// deterministic ordering: score descending, then effective date descending
// so newer regulation text wins ties, then chunk ID.
func (p *Planner) resolve(view *corpusView, hits []index.Hit) ([]types.QueryResult, error) {
	results := make([]types.QueryResult, 0, len(hits))
	for _, h := range hits {
		r, ok := view.result(h)
		if !ok {
			// The chunk vanished between ranking and resolution, which only
			// happens on a concurrent rebuild. Skip rather than fail.
			p.logger.Warn("hit resolved to missing chunk", "chunk_id", h.ChunkID)
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Effective.Equal(results[j].Effective) {
			return results[i].Effective.After(results[j].Effective)
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results, nil
}
