package dto

import (
	"fmt"

	"github.com/aerolex/aerolex/pkg/filter"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/planner"
	"github.com/aerolex/aerolex/pkg/types"
)

// QueryFilters restricts a query to a slice of the corpus. All set fields
// are conjoined.
type QueryFilters struct {
	RegulationID string            `json:"regulation_id,omitempty"`
	Category     string            `json:"category,omitempty"`
	Jurisdiction string            `json:"jurisdiction,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// Predicate builds the metadata predicate, nil when no filter is set.
func (f *QueryFilters) Predicate() filter.Predicate {
	if f == nil {
		return nil
	}
	var preds []filter.Predicate
	if f.RegulationID != "" {
		preds = append(preds, filter.Regulation(f.RegulationID))
	}
	if f.Category != "" {
		preds = append(preds, filter.Category(f.Category))
	}
	if f.Jurisdiction != "" {
		preds = append(preds, filter.Jurisdiction(f.Jurisdiction))
	}
	for k, v := range f.Fields {
		preds = append(preds, filter.FieldEquals(k, v))
	}
	if len(preds) == 0 {
		return nil
	}
	return filter.And(preds...)
}

// QueryRequest represents a point-in-time retrieval request
type QueryRequest struct {
	Embedding []float32     `json:"embedding" binding:"required"`
	K         int           `json:"k,omitempty"`
	AsOfDate  string        `json:"as_of_date,omitempty"`
	MinScore  *float64      `json:"min_score,omitempty"`
	Strategy  string        `json:"strategy,omitempty"`
	Filters   *QueryFilters `json:"filters,omitempty"`
}

// Validate performs validation on QueryRequest
func (r *QueryRequest) Validate() error {
	if len(r.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	if r.K < 0 {
		return fmt.Errorf("k cannot be negative")
	}
	if _, err := ParseOptionalDate(r.AsOfDate); err != nil {
		return err
	}
	switch index.Strategy(r.Strategy) {
	case "", index.StrategyPreFilter, index.StrategyPostFilter:
	default:
		return fmt.Errorf("invalid strategy %q: want %q or %q",
			r.Strategy, index.StrategyPreFilter, index.StrategyPostFilter)
	}
	return nil
}

// Options converts the request to planner options. Call Validate first.
func (r *QueryRequest) Options() (planner.QueryOptions, error) {
	asOf, err := ParseOptionalDate(r.AsOfDate)
	if err != nil {
		return planner.QueryOptions{}, err
	}
	return planner.QueryOptions{
		AsOf:     asOf,
		K:        r.K,
		Filter:   r.Filters.Predicate(),
		Strategy: index.Strategy(r.Strategy),
		MinScore: r.MinScore,
	}, nil
}

// QueryResponse represents a response from the query endpoint
type QueryResponse struct {
	Success bool                `json:"success"`
	Results []types.QueryResult `json:"results"`
	Count   int                 `json:"count"`
}
