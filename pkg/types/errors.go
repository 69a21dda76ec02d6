package types

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrEmptyRegulationID    = errors.New("regulation_id cannot be empty")
	ErrEmptyChunkText       = errors.New("chunk text cannot be empty")
	ErrEmptyEmbedding       = errors.New("chunk embedding cannot be empty")
	ErrMissingEffectiveDate = errors.New("effective_date is required")
	ErrInvalidInterval      = errors.New("invalid interval")
	ErrInvalidLimit         = errors.New("limit must be positive")
)

// InvalidInputError reports a malformed version descriptor or chunk input,
// including embedding dimensionality mismatches. It is always returned
// before any mutation, so callers may retry with corrected input.
type InvalidInputError struct {
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// ConflictError reports a version registration whose interval would overlap
// an existing version's interval without explicit historical-insert intent.
// No partial mutation occurs.
type ConflictError struct {
	RegulationID string
	Reason       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on regulation %q: %s", e.RegulationID, e.Reason)
}

// NotFoundError reports a reference to a regulation, version, or chunk that
// does not exist.
type NotFoundError struct {
	Kind string // "regulation", "version", "chunk"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// RetrievalUnavailableError reports that the approximate index stayed
// unavailable through all retry attempts. Results are never silently
// degraded; the caller sees this error instead.
type RetrievalUnavailableError struct {
	Attempts int
	Err      error
}

func (e *RetrievalUnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetrievalUnavailableError) Unwrap() error { return e.Err }

// IntegrityError reports a data-integrity violation detected at read time,
// such as more than one active version of a regulation. It is fatal for the
// affected regulation and requires operator intervention; the engine never
// resolves it by silently picking a version.
type IntegrityError struct {
	RegulationID string
	Detail       string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on regulation %q: %s", e.RegulationID, e.Detail)
}
