// Package filter implements the temporal filter evaluator: a small
// predicate-combinator vocabulary over chunk metadata. Every predicate is a
// pure function of its inputs. Nothing in this package reads the wall
// clock; when a query defaults "as of" to now, the planner captures that
// instant once at query start.
package filter

import (
	"time"

	"github.com/aerolex/aerolex/pkg/types"
)

// Predicate decides whether a chunk's metadata is admissible.
type Predicate interface {
	Matches(m types.ChunkMetadata) bool
}

// PredicateFunc adapts a plain function to the Predicate interface.
type PredicateFunc func(m types.ChunkMetadata) bool

func (f PredicateFunc) Matches(m types.ChunkMetadata) bool { return f(m) }

// All matches every chunk. It is the identity for And.
func All() Predicate {
	return PredicateFunc(func(types.ChunkMetadata) bool { return true })
}

// And returns the conjunction of the given predicates. Nil entries are
// ignored so callers can pass an optional extra predicate unconditionally.
func And(preds ...Predicate) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		for _, p := range preds {
			if p != nil && !p.Matches(m) {
				return false
			}
		}
		return true
	})
}

// Or returns the disjunction of the given predicates.
func Or(preds ...Predicate) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		for _, p := range preds {
			if p != nil && p.Matches(m) {
				return true
			}
		}
		return false
	})
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool { return !p.Matches(m) })
}

// ValidAt matches chunks whose owning version was legally in force at t:
// effective <= t AND (expiry IS NULL OR expiry > t). The null-expiry
// disjunction is folded in here so callers never have to express it
// themselves, which is where double-counting bugs usually come from.
func ValidAt(t time.Time) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		if t.Before(m.Effective) {
			return false
		}
		return m.Expiry == nil || t.Before(*m.Expiry)
	})
}

// ActiveOnly matches chunks whose owning version is currently active. This
// is the default when a query omits as_of_date (a present-tense query).
func ActiveOnly() Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.Status == types.StatusActive
	})
}

// Regulation matches chunks belonging to the given regulation.
func Regulation(id string) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.RegulationID == id
	})
}

// Category matches on the owning regulation's category tag.
func Category(category string) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.Category == category
	})
}

// Jurisdiction matches on the owning regulation's jurisdiction tag.
func Jurisdiction(j string) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.Jurisdiction == j
	})
}

// FieldEquals matches chunks whose free-form field key equals value.
func FieldEquals(key, value string) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.Fields[key] == value
	})
}

// FieldIn matches chunks whose field key equals any of the given values.
func FieldIn(key string, values ...string) Predicate {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		v, ok := m.Fields[key]
		if !ok {
			return false
		}
		_, hit := set[v]
		return hit
	})
}

// TokenCountAtMost matches chunks of at most n tokens.
func TokenCountAtMost(n int) Predicate {
	return PredicateFunc(func(m types.ChunkMetadata) bool {
		return m.TokenCount <= n
	})
}

// Temporal builds the base temporal predicate for a query. A non-nil asOf
// yields ValidAt(*asOf); a nil asOf yields ActiveOnly.
func Temporal(asOf *time.Time) Predicate {
	if asOf != nil {
		return ValidAt(*asOf)
	}
	return ActiveOnly()
}

// Matches evaluates the composite predicate for one chunk: the temporal
// base for asOf conjoined with the optional extra predicate. Identical
// inputs always produce the identical result.
func Matches(m types.ChunkMetadata, asOf *time.Time, extra Predicate) bool {
	return And(Temporal(asOf), extra).Matches(m)
}
