package types

import (
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func TestIntervalContains(t *testing.T) {
	tests := []struct {
		name     string
		interval Interval
		at       string
		want     bool
	}{
		{
			name:     "inside closed interval",
			interval: NewInterval(date("2022-08-15"), date("2023-04-01")),
			at:       "2023-01-01",
			want:     true,
		},
		{
			name:     "before effective",
			interval: NewInterval(date("2022-08-15"), date("2023-04-01")),
			at:       "2022-08-14",
			want:     false,
		},
		{
			name:     "effective date is inclusive",
			interval: NewInterval(date("2022-08-15"), date("2023-04-01")),
			at:       "2022-08-15",
			want:     true,
		},
		{
			name:     "expiry date is exclusive",
			interval: NewInterval(date("2022-08-15"), date("2023-04-01")),
			at:       "2023-04-01",
			want:     false,
		},
		{
			name:     "open interval contains far future",
			interval: OpenInterval(date("2023-04-01")),
			at:       "2099-01-01",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.interval.Contains(date(tt.at)); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIntervalOverlaps(t *testing.T) {
	a := NewInterval(date("2022-08-15"), date("2023-04-01"))

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"adjacent successor does not overlap", OpenInterval(date("2023-04-01")), false},
		{"strictly inside overlaps", NewInterval(date("2022-10-01"), date("2022-12-01")), true},
		{"straddling start overlaps", NewInterval(date("2022-01-01"), date("2022-09-01")), true},
		{"before does not overlap", NewInterval(date("2021-01-01"), date("2022-08-15")), false},
		{"open earlier interval overlaps", OpenInterval(date("2020-01-01")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps(%s) = %v, want %v", tt.other, got, tt.want)
			}
			if got := tt.other.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %s", tt.other)
			}
		})
	}
}

func TestIntervalValidate(t *testing.T) {
	if err := (Interval{}).Validate(); err != ErrMissingEffectiveDate {
		t.Errorf("empty interval: got %v, want ErrMissingEffectiveDate", err)
	}

	bad := NewInterval(date("2023-04-01"), date("2023-04-01"))
	if err := bad.Validate(); err == nil {
		t.Error("zero-length interval should be invalid")
	}

	if err := OpenInterval(date("2023-04-01")).Validate(); err != nil {
		t.Errorf("open interval should be valid, got %v", err)
	}
}

func TestIntervalAdjacent(t *testing.T) {
	a := NewInterval(date("2022-08-15"), date("2023-04-01"))
	b := OpenInterval(date("2023-04-01"))

	if !a.Adjacent(b) {
		t.Error("expected adjacency at shared boundary")
	}
	if b.Adjacent(a) {
		t.Error("open interval cannot be adjacent to anything")
	}
}
