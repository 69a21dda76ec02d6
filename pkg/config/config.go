package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/aerolex/aerolex/pkg/alert"
	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/lineage"
	"github.com/aerolex/aerolex/pkg/planner"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration for the durable chunk store
	Store chunkstore.Config `mapstructure:"store"`

	// Index configuration for approximate search
	Index index.Config `mapstructure:"index"`

	// Search configuration for query defaults
	Search planner.Config `mapstructure:"search"`

	// Lineage configuration for the supersession audit trail
	Lineage lineage.Config `mapstructure:"lineage"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert alert.Config `mapstructure:"alert"`

	// CircuitBreaker configuration for index search
	CircuitBreaker index.BreakerConfig `mapstructure:"circuit_breaker"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ParquetPath string `mapstructure:"parquet_path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Store defaults
	viper.SetDefault("store.type", "badger")
	viper.SetDefault("store.path", "./aerolex_db")
	viper.SetDefault("store.dimension", 1024)

	// Index defaults
	viper.SetDefault("index.backend", "hnsw")
	viper.SetDefault("index.m", 16)
	viper.SetDefault("index.ef_search", 64)
	viper.SetDefault("index.initial_expansion", 4)
	viper.SetDefault("index.max_expansion", 64)

	// Search defaults
	viper.SetDefault("search.top_k", 5)
	viper.SetDefault("search.score_threshold", 0.7)
	viper.SetDefault("search.selectivity_threshold", 0.5)
	viper.SetDefault("search.max_retries", 3)

	// Lineage defaults
	viper.SetDefault("lineage.backend", "memory")
	viper.SetDefault("lineage.database", "neo4j")

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := fmt.Sprintf("%s/.aerolex/telemetry", home)
		viper.SetDefault("telemetry.parquet_path", defaultPath)
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Store settings
	if path := os.Getenv("AEROLEX_STORE_PATH"); path != "" {
		config.Store.Path = path
	}
	if dim := os.Getenv("AEROLEX_EMBEDDING_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			config.Store.Dimension = n
		}
	}

	// Lineage credentials
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Lineage.Backend = lineage.BackendNeo4j
		config.Lineage.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Lineage.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Lineage.Password = pass
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
