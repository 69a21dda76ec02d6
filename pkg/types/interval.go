package types

import (
	"fmt"
	"time"
)

// Interval is a half-open validity window [Effective, Expiry). A nil Expiry
// means the interval is open-ended ("still in force"). Effective is
// inclusive and Expiry is exclusive, so two adjacent intervals sharing a
// boundary instant never both contain it: the instant belongs to the newer
// interval.
type Interval struct {
	Effective time.Time  `json:"effective_date"`
	Expiry    *time.Time `json:"expiry_date,omitempty"`
}

// NewInterval constructs a closed interval ending at expiry.
func NewInterval(effective, expiry time.Time) Interval {
	return Interval{Effective: effective, Expiry: &expiry}
}

// OpenInterval constructs an open-ended interval starting at effective.
func OpenInterval(effective time.Time) Interval {
	return Interval{Effective: effective}
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	if t.Before(iv.Effective) {
		return false
	}
	if iv.Expiry == nil {
		return true
	}
	return t.Before(*iv.Expiry)
}

// Open reports whether the interval has no expiry.
func (iv Interval) Open() bool {
	return iv.Expiry == nil
}

// Overlaps reports whether two intervals share at least one instant.
// Touching at a boundary is not an overlap: [a, b) and [b, c) are disjoint.
func (iv Interval) Overlaps(other Interval) bool {
	if other.Expiry != nil && !iv.Effective.Before(*other.Expiry) {
		return false
	}
	if iv.Expiry != nil && !other.Effective.Before(*iv.Expiry) {
		return false
	}
	return true
}

// Adjacent reports whether other begins exactly where iv ends.
func (iv Interval) Adjacent(other Interval) bool {
	return iv.Expiry != nil && iv.Expiry.Equal(other.Effective)
}

// Validate checks internal consistency of the interval.
func (iv Interval) Validate() error {
	if iv.Effective.IsZero() {
		return ErrMissingEffectiveDate
	}
	if iv.Expiry != nil && !iv.Expiry.After(iv.Effective) {
		return fmt.Errorf("%w: expiry %s is not after effective %s",
			ErrInvalidInterval, iv.Expiry.Format(time.RFC3339), iv.Effective.Format(time.RFC3339))
	}
	return nil
}

func (iv Interval) String() string {
	if iv.Expiry == nil {
		return fmt.Sprintf("[%s, ∞)", iv.Effective.Format("2006-01-02"))
	}
	return fmt.Sprintf("[%s, %s)", iv.Effective.Format("2006-01-02"), iv.Expiry.Format("2006-01-02"))
}
