package aerolex

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/config"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/lineage"
	"github.com/aerolex/aerolex/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Aerolex HTTP server",
	Long: `Start the Aerolex HTTP server to provide REST API access to the corpus.

The server provides endpoints for:
- Registering regulation versions and their chunks
- Point-in-time similarity queries with metadata filters
- Version history, lineage, and as-of lookups
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Store flags
	serverCmd.Flags().String("store-type", "badger", "Chunk store type (badger, memory)")
	serverCmd.Flags().String("store-path", "./aerolex_db", "Chunk store path")
	serverCmd.Flags().Int("embedding-dimension", 1024, "Embedding dimension")

	// Index flags
	serverCmd.Flags().String("index-backend", "hnsw", "Vector index backend (hnsw, brute)")

	// Lineage flags
	serverCmd.Flags().String("neo4j-uri", "", "Neo4j URI for lineage recording (empty disables)")
	serverCmd.Flags().String("neo4j-username", "", "Neo4j username")
	serverCmd.Flags().String("neo4j-password", "", "Neo4j password")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Path to directory for telemetry (errors and query traces)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	overrideConfigWithFlags(cmd, cfg)

	// Validate configuration
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize the engine
	fmt.Println("Initializing Aerolex...")
	engine, err := aerolex.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Aerolex: %w", err)
	}

	// Create and setup server
	srv := server.New(cfg, engine)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal: %v\n", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		if err := engine.Close(shutdownCtx); err != nil {
			return fmt.Errorf("engine shutdown error: %w", err)
		}

		fmt.Println("Server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	// Server flags
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}

	// Store flags
	if cmd.Flags().Changed("store-type") {
		st, _ := cmd.Flags().GetString("store-type")
		cfg.Store.Type = chunkstore.StoreType(st)
	}
	if cmd.Flags().Changed("store-path") {
		cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
	}
	if cmd.Flags().Changed("embedding-dimension") {
		cfg.Store.Dimension, _ = cmd.Flags().GetInt("embedding-dimension")
	}

	// Index flags
	if cmd.Flags().Changed("index-backend") {
		backend, _ := cmd.Flags().GetString("index-backend")
		cfg.Index.Backend = index.Backend(backend)
	}

	// Lineage flags
	if cmd.Flags().Changed("neo4j-uri") {
		cfg.Lineage.URI, _ = cmd.Flags().GetString("neo4j-uri")
		if cfg.Lineage.URI != "" {
			cfg.Lineage.Backend = lineage.BackendNeo4j
		}
	}
	if cmd.Flags().Changed("neo4j-username") {
		cfg.Lineage.Username, _ = cmd.Flags().GetString("neo4j-username")
	}
	if cmd.Flags().Changed("neo4j-password") {
		cfg.Lineage.Password, _ = cmd.Flags().GetString("neo4j-password")
	}

	// Telemetry flags
	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Store.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive: %d", cfg.Store.Dimension)
	}
	return nil
}
