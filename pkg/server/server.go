package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/config"
	"github.com/aerolex/aerolex/pkg/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	engine aerolex.Engine
	server *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, engine aerolex.Engine) *Server {
	return &Server{
		config: cfg,
		engine: engine,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	// Set gin mode
	gin.SetMode(s.config.Server.Mode)

	// Create router
	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.engine)
	ingestHandler := handlers.NewIngestHandler(s.engine)
	queryHandler := handlers.NewQueryHandler(s.engine)
	regsHandler := handlers.NewRegulationsHandler(s.engine)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/query", queryHandler.Query)
		v1.GET("/stats", healthHandler.Stats)
		v1.POST("/index/rebuild", ingestHandler.RebuildIndex)

		regs := v1.Group("/regulations")
		{
			regs.GET("", regsHandler.List)
			regs.GET("/:id", regsHandler.Get)
			regs.GET("/:id/history", regsHandler.History)
			regs.GET("/:id/version", regsHandler.VersionAsOf)
			regs.GET("/:id/lineage", regsHandler.Lineage)

			regs.POST("/:id/versions", ingestHandler.IngestVersion)
			regs.POST("/:id/versions/historical", ingestHandler.IngestHistoricalVersion)
			regs.POST("/:id/versions/:seq/activate", ingestHandler.ActivateDraft)
		}
	}
}

// Start starts the server
func (s *Server) Start() error {
	fmt.Printf("Starting server on %s\n", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println("Stopping server...")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
