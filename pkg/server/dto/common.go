package dto

import (
	"errors"
	"fmt"
	"time"
)

// Date layouts accepted on the wire. Dates without a time component are
// interpreted as midnight UTC.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses a wire date in RFC3339 or plain date form.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC3339 or YYYY-MM-DD", s)
}

// ParseOptionalDate parses a possibly absent wire date.
func ParseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Validation errors
var (
	ErrEmptyRegulationID   = errors.New("regulation id cannot be empty")
	ErrRegulationIDTooLong = errors.New("regulation id exceeds maximum length (256)")
	ErrInvalidVersionSeq   = errors.New("version seq must be a positive integer")
	ErrEmptyChunks         = errors.New("chunks cannot be empty")
	ErrEmptyEmbedding      = errors.New("embedding cannot be empty")
	ErrTooManyChunks       = errors.New("chunks count exceeds maximum (1000)")
	ErrChunkTextTooLong    = errors.New("chunk text exceeds maximum length (1MB)")
)

// Maximum field sizes to prevent abuse
const (
	MaxRegulationIDLength = 256
	MaxChunkTextLength    = 1024 * 1024 // 1MB
	MaxChunksCount        = 1000
)

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
