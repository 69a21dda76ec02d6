package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/lineage"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, chunkstore.StoreTypeBadger, cfg.Store.Type)
	assert.Equal(t, 1024, cfg.Store.Dimension)
	assert.Equal(t, 16, cfg.Index.M)
	assert.Equal(t, 64, cfg.Index.EfSearch)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.InDelta(t, 0.7, cfg.Search.ScoreThreshold, 1e-9)
	assert.Equal(t, lineage.BackendMemory, cfg.Lineage.Backend)
	assert.True(t, cfg.CircuitBreaker.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AEROLEX_STORE_PATH", "/tmp/corpus")
	t.Setenv("AEROLEX_EMBEDDING_DIMENSION", "768")
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/corpus", cfg.Store.Path)
	assert.Equal(t, 768, cfg.Store.Dimension)
	assert.Equal(t, lineage.BackendNeo4j, cfg.Lineage.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Lineage.URI)
	assert.Equal(t, 9090, cfg.Server.Port)
}
