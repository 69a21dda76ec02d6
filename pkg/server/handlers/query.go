package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/server/dto"
	"github.com/aerolex/aerolex/pkg/types"
)

// QueryHandler handles retrieval requests
type QueryHandler struct {
	engine aerolex.Engine
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(e aerolex.Engine) *QueryHandler {
	return &QueryHandler{
		engine: e,
	}
}

// Query handles POST /api/v1/query - point-in-time filtered similarity search
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		abortBadRequest(c, err)
		return
	}

	opts, err := req.Options()
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	results, err := h.engine.Query(c.Request.Context(), req.Embedding, opts)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if results == nil {
		results = []types.QueryResult{}
	}

	c.JSON(http.StatusOK, dto.QueryResponse{
		Success: true,
		Results: results,
		Count:   len(results),
	})
}
