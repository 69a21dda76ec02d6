package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/server/dto"
	"github.com/aerolex/aerolex/pkg/types"
)

// IngestHandler handles version registration requests
type IngestHandler struct {
	engine aerolex.Engine
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(e aerolex.Engine) *IngestHandler {
	return &IngestHandler{
		engine: e,
	}
}

// IngestVersion handles POST /api/v1/regulations/:id/versions
func (h *IngestHandler) IngestVersion(c *gin.Context) {
	regID := c.Param("id")
	if regID == "" {
		abortBadRequest(c, dto.ErrEmptyRegulationID)
		return
	}
	if len(regID) > dto.MaxRegulationIDLength {
		abortBadRequest(c, dto.ErrRegulationIDTooLong)
		return
	}

	var req dto.IngestVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	desc, err := req.Descriptor()
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	reg := types.Regulation{
		ID:           regID,
		Category:     req.Category,
		Jurisdiction: req.Jurisdiction,
		Title:        req.Title,
	}

	version, err := h.engine.IngestVersion(c.Request.Context(), reg, desc, req.ChunkInputs())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.IngestResponse{
		Success:      true,
		RegulationID: regID,
		Version:      *version,
		ChunkCount:   len(req.Chunks),
	})
}

// IngestHistoricalVersion handles POST /api/v1/regulations/:id/versions/historical
func (h *IngestHandler) IngestHistoricalVersion(c *gin.Context) {
	regID := c.Param("id")
	if regID == "" {
		abortBadRequest(c, dto.ErrEmptyRegulationID)
		return
	}

	var req dto.IngestVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	desc, err := req.Descriptor()
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	version, err := h.engine.InsertHistoricalVersion(c.Request.Context(), regID, desc, req.ChunkInputs())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.IngestResponse{
		Success:      true,
		RegulationID: regID,
		Version:      *version,
		ChunkCount:   len(req.Chunks),
	})
}

// ActivateDraft handles POST /api/v1/regulations/:id/versions/:seq/activate
func (h *IngestHandler) ActivateDraft(c *gin.Context) {
	regID := c.Param("id")
	if regID == "" {
		abortBadRequest(c, dto.ErrEmptyRegulationID)
		return
	}

	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq <= 0 {
		abortBadRequest(c, dto.ErrInvalidVersionSeq)
		return
	}

	version, err := h.engine.ActivateDraft(c.Request.Context(), regID, seq)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data:    version,
	})
}

// RebuildIndex handles POST /api/v1/index/rebuild
func (h *IngestHandler) RebuildIndex(c *gin.Context) {
	if err := h.engine.RebuildIndex(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true})
}
