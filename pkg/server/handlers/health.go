package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	engine aerolex.Engine
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(e aerolex.Engine) *HealthHandler {
	return &HealthHandler{
		engine: e,
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "aerolex",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	response := gin.H{
		"status":    "ready",
		"service":   "aerolex",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}
	checks := response["checks"].(gin.H)

	if h.engine == nil {
		checks["engine"] = gin.H{
			"status": "unhealthy",
			"error":  "engine not initialized",
		}
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	start := time.Now()
	stats := h.engine.Stats()
	checks["engine"] = gin.H{
		"status":      "healthy",
		"duration":    time.Since(start).String(),
		"regulations": stats.Regulations,
	}

	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "aerolex",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	startTime := time.Now()
	response := gin.H{
		"status":  "healthy",
		"service": "aerolex",
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
	}

	if h.engine != nil {
		stats := h.engine.Stats()
		response["corpus"] = gin.H{
			"regulations": stats.Regulations,
			"versions":    stats.Versions,
			"chunks":      stats.Chunks,
		}
	} else {
		response["status"] = "degraded"
	}

	response["response_time_ms"] = time.Since(startTime).Milliseconds()
	c.JSON(http.StatusOK, response)
}

// Stats handles GET /api/v1/stats - corpus-wide counts
func (h *HealthHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}
