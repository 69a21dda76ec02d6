package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/server/dto"
)

// RegulationsHandler handles regulation and version lookup requests
type RegulationsHandler struct {
	engine aerolex.Engine
}

// NewRegulationsHandler creates a new regulations handler
func NewRegulationsHandler(e aerolex.Engine) *RegulationsHandler {
	return &RegulationsHandler{
		engine: e,
	}
}

// List handles GET /api/v1/regulations
func (h *RegulationsHandler) List(c *gin.Context) {
	ids := h.engine.Regulations()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"regulations": ids,
		"count":       len(ids),
	})
}

// Get handles GET /api/v1/regulations/:id
func (h *RegulationsHandler) Get(c *gin.Context) {
	reg, err := h.engine.Regulation(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data:    reg,
	})
}

// History handles GET /api/v1/regulations/:id/history
func (h *RegulationsHandler) History(c *gin.Context) {
	versions, err := h.engine.History(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"regulation_id": c.Param("id"),
		"versions":      versions,
		"count":         len(versions),
	})
}

// VersionAsOf handles GET /api/v1/regulations/:id/version?as_of=DATE
func (h *RegulationsHandler) VersionAsOf(c *gin.Context) {
	asOfParam := c.Query("as_of")
	if asOfParam == "" {
		abortBadRequest(c, fmt.Errorf("as_of query parameter is required"))
		return
	}
	asOf, err := dto.ParseDate(asOfParam)
	if err != nil {
		abortBadRequest(c, err)
		return
	}

	version, err := h.engine.VersionAsOf(c.Param("id"), asOf)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data:    version,
	})
}

// Lineage handles GET /api/v1/regulations/:id/lineage
func (h *RegulationsHandler) Lineage(c *gin.Context) {
	records, err := h.engine.Lineage(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"regulation_id": c.Param("id"),
		"lineage":       records,
		"count":         len(records),
	})
}
