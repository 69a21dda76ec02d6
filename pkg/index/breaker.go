package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aerolex/aerolex/pkg/alert"
)

// BreakerConfig tunes the search circuit breaker.
type BreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// BreakerIndex wraps an Index so that a run of search failures opens a
// circuit instead of hammering a degraded backend. Mutations pass through
// unguarded; only Search trips the breaker.
type BreakerIndex struct {
	inner   Index
	cb      *gobreaker.CircuitBreaker
	alerter alert.Alerter
	logger  *slog.Logger
	name    string
}

// NewBreakerIndex wraps inner with circuit breaking. A trip into the open
// state raises an alert.
func NewBreakerIndex(inner Index, cfg BreakerConfig, alerter alert.Alerter, logger *slog.Logger, name string) *BreakerIndex {
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				msg := fmt.Sprintf("Circuit breaker '%s' changed status from %s to %s. Too many search failures detected.", name, from, to)
				if alerter != nil {
					_ = alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg)
				}
				logger.Error("circuit breaker tripped", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}

	return &BreakerIndex{
		inner:   inner,
		cb:      gobreaker.NewCircuitBreaker(st),
		alerter: alerter,
		logger:  logger,
		name:    name,
	}
}

// Search implements Index.
func (b *BreakerIndex) Search(ctx context.Context, query []float32, p SearchParams) ([]Hit, error) {
	hits, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Search(ctx, query, p)
	})
	if err != nil {
		return nil, err
	}
	return hits.([]Hit), nil
}

// Add implements Index.
func (b *BreakerIndex) Add(id string, vector []float32) error {
	return b.inner.Add(id, vector)
}

// AddBatch implements Index.
func (b *BreakerIndex) AddBatch(ids []string, vectors [][]float32) error {
	return b.inner.AddBatch(ids, vectors)
}

// Delete implements Index.
func (b *BreakerIndex) Delete(id string) {
	b.inner.Delete(id)
}

// Len implements Index.
func (b *BreakerIndex) Len() int {
	return b.inner.Len()
}

// Close implements Index.
func (b *BreakerIndex) Close() error {
	return b.inner.Close()
}
