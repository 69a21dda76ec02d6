package types

import (
	"fmt"
	"time"
)

// VersionStatus is the lifecycle state of a regulation version. The only
// legal transitions are draft to active and active to superseded.
type VersionStatus string

const (
	StatusDraft      VersionStatus = "draft"
	StatusActive     VersionStatus = "active"
	StatusSuperseded VersionStatus = "superseded"
)

// Regulation identifies a body of regulatory text that is stable across
// amendments. Immutable once created; amendments produce new
// RegulationVersions, never a new Regulation.
type Regulation struct {
	ID           string    `json:"id"`
	Category     string    `json:"category,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the regulation for required fields.
func (r *Regulation) Validate() error {
	if r.ID == "" {
		return ErrEmptyRegulationID
	}
	return nil
}

// RegulationVersion is one revision of a regulation's text. Seq is assigned
// by the ledger and is monotonic per regulation in creation order; the
// supersession chain is ordered by effective date.
type RegulationVersion struct {
	RegulationID string        `json:"regulation_id"`
	Seq          int           `json:"seq"`
	Interval     Interval      `json:"interval"`
	Status       VersionStatus `json:"status"`

	// Supersedes is the Seq of the version this one replaced, 0 if none.
	Supersedes int `json:"supersedes_version,omitempty"`
	// SupersededBy is the Seq of the version that replaced this one, 0 if none.
	SupersededBy int `json:"superseded_by_version,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Effective returns the inclusive start of the version's validity window.
func (v *RegulationVersion) Effective() time.Time { return v.Interval.Effective }

// Expiry returns the exclusive end of the validity window, nil if open.
func (v *RegulationVersion) Expiry() *time.Time { return v.Interval.Expiry }

// InForceAt reports whether this version governed at instant t.
func (v *RegulationVersion) InForceAt(t time.Time) bool {
	return v.Interval.Contains(t)
}

// VersionDescriptor is the caller-supplied description of a new version.
type VersionDescriptor struct {
	// Effective is the inclusive start of validity. Required.
	Effective time.Time `json:"effective_date"`

	// Expiry is the exclusive end of validity. Usually nil; the ledger sets
	// it when a successor is registered.
	Expiry *time.Time `json:"expiry_date,omitempty"`

	// Supersedes names the Seq of the version being replaced. Optional; when
	// set, that version must exist and belong to the same regulation.
	Supersedes int `json:"supersedes_version,omitempty"`

	// Draft registers the version without activating it. A draft takes
	// part in no temporal chain until explicitly activated.
	Draft bool `json:"draft,omitempty"`

	// Source is a free-form provenance note (gazette reference, docket id).
	Source string `json:"source,omitempty"`
}

// Validate checks the descriptor before any mutation happens.
func (d *VersionDescriptor) Validate() error {
	if d.Effective.IsZero() {
		return ErrMissingEffectiveDate
	}
	if d.Expiry != nil && !d.Expiry.After(d.Effective) {
		return fmt.Errorf("%w: expiry %s is not after effective %s",
			ErrInvalidInterval, d.Expiry.Format(time.RFC3339), d.Effective.Format(time.RFC3339))
	}
	if d.Supersedes < 0 {
		return fmt.Errorf("%w: negative supersedes_version", ErrInvalidInterval)
	}
	return nil
}

// LineageRecord is emitted by the ledger whenever one version supersedes
// another. Consumed by the lineage recorder for audit and debug queries.
type LineageRecord struct {
	RegulationID string    `json:"regulation_id"`
	FromSeq      int       `json:"from_seq"`
	ToSeq        int       `json:"to_seq"`
	Effective    time.Time `json:"effective_date"`
	RecordedAt   time.Time `json:"recorded_at"`
}
