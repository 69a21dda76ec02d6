package dto

import (
	"fmt"
	"strings"

	"github.com/aerolex/aerolex/pkg/types"
)

// ChunkPayload is one embedded chunk on the wire.
type ChunkPayload struct {
	Text       string            `json:"text" binding:"required"`
	Embedding  []float32         `json:"embedding" binding:"required"`
	TokenCount int               `json:"token_count,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Validate performs validation on ChunkPayload
func (c *ChunkPayload) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk text cannot be empty")
	}
	if len(c.Text) > MaxChunkTextLength {
		return ErrChunkTextTooLong
	}
	if len(c.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	return nil
}

// IngestVersionRequest registers a new version of a regulation with its
// chunks. The regulation is created on first use from the metadata fields.
type IngestVersionRequest struct {
	Category     string `json:"category,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Title        string `json:"title,omitempty"`

	EffectiveDate string `json:"effective_date" binding:"required"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	Supersedes    int    `json:"supersedes_version,omitempty"`
	Draft         bool   `json:"draft,omitempty"`
	Source        string `json:"source,omitempty"`

	Chunks []ChunkPayload `json:"chunks" binding:"required,dive"`
}

// Validate performs validation on IngestVersionRequest
func (r *IngestVersionRequest) Validate() error {
	if len(r.Chunks) == 0 {
		return ErrEmptyChunks
	}
	if len(r.Chunks) > MaxChunksCount {
		return ErrTooManyChunks
	}
	for i := range r.Chunks {
		if err := r.Chunks[i].Validate(); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	if _, err := ParseDate(r.EffectiveDate); err != nil {
		return err
	}
	if _, err := ParseOptionalDate(r.ExpiryDate); err != nil {
		return err
	}
	return nil
}

// Descriptor converts the request to a version descriptor. Call Validate
// first.
func (r *IngestVersionRequest) Descriptor() (types.VersionDescriptor, error) {
	effective, err := ParseDate(r.EffectiveDate)
	if err != nil {
		return types.VersionDescriptor{}, err
	}
	expiry, err := ParseOptionalDate(r.ExpiryDate)
	if err != nil {
		return types.VersionDescriptor{}, err
	}
	return types.VersionDescriptor{
		Effective:  effective,
		Expiry:     expiry,
		Supersedes: r.Supersedes,
		Draft:      r.Draft,
		Source:     r.Source,
	}, nil
}

// ChunkInputs converts the wire chunks to engine inputs.
func (r *IngestVersionRequest) ChunkInputs() []types.ChunkInput {
	out := make([]types.ChunkInput, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = types.ChunkInput{
			Text:       c.Text,
			Embedding:  c.Embedding,
			TokenCount: c.TokenCount,
			Fields:     c.Fields,
		}
	}
	return out
}

// IngestResponse represents a response from ingest operations
type IngestResponse struct {
	Success      bool                    `json:"success"`
	RegulationID string                  `json:"regulation_id"`
	Version      types.RegulationVersion `json:"version"`
	ChunkCount   int                     `json:"chunk_count"`
}
