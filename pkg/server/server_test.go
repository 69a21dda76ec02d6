package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aerolex/aerolex"
	"github.com/aerolex/aerolex/pkg/chunkstore"
	"github.com/aerolex/aerolex/pkg/config"
	"github.com/aerolex/aerolex/pkg/index"
	"github.com/aerolex/aerolex/pkg/lineage"
	"github.com/aerolex/aerolex/pkg/planner"
	"github.com/aerolex/aerolex/pkg/server/dto"
)

const testDim = 4

func testConfig() *config.Config {
	return &config.Config{
		Log: config.LogConfig{Level: "error"},
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: "test",
		},
		Store:   chunkstore.Config{Type: chunkstore.StoreTypeMemory, Dimension: testDim},
		Index:   index.Config{Backend: index.BackendBrute},
		Search:  planner.Config{ScoreThreshold: -1},
		Lineage: lineage.Config{Backend: lineage.BackendMemory},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := aerolex.New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	srv := New(testConfig(), engine)
	srv.Setup()
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func ingestBody(effective string, texts ...string) map[string]any {
	chunks := make([]map[string]any, len(texts))
	for i, text := range texts {
		chunks[i] = map[string]any{
			"text":      text,
			"embedding": []float32{1, float32(i) / 10, 0, 0},
		}
	}
	return map[string]any{
		"category":       "operations",
		"jurisdiction":   "US",
		"effective_date": effective,
		"chunks":         chunks,
	}
}

func TestSetup(t *testing.T) {
	srv := newTestServer(t)

	require.NotNil(t, srv.router)
	require.NotNil(t, srv.server)
	assert.Equal(t, "localhost:8080", srv.server.Addr)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready", "/live", "/health/detailed"} {
		w := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestIngestAndQueryRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-121.542/versions",
		ingestBody("2022-08-15", "no crewmember may engage in nonessential duties"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ingested dto.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ingested))
	assert.True(t, ingested.Success)
	assert.Equal(t, 1, ingested.Version.Seq)
	assert.Equal(t, 1, ingested.ChunkCount)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"embedding": []float32{1, 0, 0, 0},
		"k":         3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var queried dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queried))
	assert.Equal(t, 1, queried.Count)
	assert.Equal(t, "far-121.542", queried.Results[0].RegulationID)
}

func TestQueryAsOfDate(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-121.542/versions",
		ingestBody("2022-08-15", "original text"))
	require.Equal(t, http.StatusCreated, w.Code)

	body := ingestBody("2023-04-01", "amended text")
	body["supersedes_version"] = 1
	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-121.542/versions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"embedding":  []float32{1, 0, 0, 0},
		"as_of_date": "2022-12-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var queried dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queried))
	require.Equal(t, 1, queried.Count)
	assert.Equal(t, "original text", queried.Results[0].Text)
	assert.Equal(t, 1, queried.Results[0].VersionSeq)
}

func TestQueryValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"embedding": []float32{1, 0, 0, 0},
		"strategy":  "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"embedding": []float32{1, 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "dimension mismatch")
}

func TestIngestValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions", map[string]any{
		"effective_date": "not-a-date",
		"chunks":         []map[string]any{{"text": "x", "embedding": []float32{1, 0, 0, 0}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions", map[string]any{
		"effective_date": "2022-08-15",
		"chunks":         []map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegulationLookups(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-121.542/versions",
		ingestBody("2022-08-15", "original"))
	require.Equal(t, http.StatusCreated, w.Code)

	body := ingestBody("2023-04-01", "amended")
	body["supersedes_version"] = 1
	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-121.542/versions", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Regulations []string `json:"regulations"`
		Count       int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"far-121.542"}, list.Regulations)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations/far-121.542/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Equal(t, 2, history.Count)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations/far-121.542/version?as_of=2022-12-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations/far-121.542/lineage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lin struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lin))
	assert.Equal(t, 1, lin.Count)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations/unknown/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftActivation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions",
		ingestBody("2022-08-15", "active text"))
	require.Equal(t, http.StatusCreated, w.Code)

	body := ingestBody("2023-04-01", "draft text")
	body["supersedes_version"] = 1
	body["draft"] = true
	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions/2/activate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions/2/activate", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "second activation conflicts")
}

func TestHistoricalInsert(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions",
		ingestBody("2024-01-01", "current"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions/historical",
		ingestBody("2020-01-01", "ancient"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/regulations/far-1/version?as_of=2021-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRebuildIndexEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions",
		ingestBody("2022-08-15", "text"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/index/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/query", map[string]any{
		"embedding": []float32{1, 0, 0, 0},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var queried dto.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queried))
	assert.Equal(t, 1, queried.Count)
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/regulations/far-1/versions",
		ingestBody("2022-08-15", "a", "b"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Regulations int `json:"regulations"`
		Versions    int `json:"versions"`
		Chunks      int `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Regulations)
	assert.Equal(t, 1, stats.Versions)
	assert.Equal(t, 2, stats.Chunks)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
