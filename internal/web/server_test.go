package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/database/mock"
	"github.com/kozaktomas/face-graph/internal/graph"
	"github.com/kozaktomas/face-graph/internal/logger"
	"github.com/kozaktomas/face-graph/internal/registry"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataRoot = t.TempDir()

	store := mock.NewMockFaceStore()
	store.AddEmbeddings(
		[]float32{1, 0},
		[]float32{0.99, 0.01},
		[]float32{0, 1},
	)
	table, err := database.LoadEmbeddingTable(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	g, err := graph.NewBuilder(0.4).Build(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Create(registry.NewFileStore(cfg), [][]int64{{1, 2}, {3}})
	if err != nil {
		t.Fatal(err)
	}
	engine, err := curation.New(curation.Deps{Table: table, Store: store, Graph: g, Registry: reg}, curation.OptionsFromConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewServer(cfg, engine, logger.Discard(), 0, "localhost").Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/stats", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces/random?count=2", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces/1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces/1/similar", "", http.StatusOK},
		{http.MethodGet, "/api/v1/faces/1/crop", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/components/random-unassigned", "", http.StatusOK},
		{http.MethodGet, "/api/v1/components/0", "", http.StatusOK},
		{http.MethodGet, "/api/v1/components/0/compare/1", "", http.StatusOK},
		{http.MethodGet, "/api/v1/components/0/subdivision", "", http.StatusOK},
		{http.MethodPost, "/api/v1/people", `{"name": "Alice"}`, http.StatusCreated},
		{http.MethodGet, "/api/v1/people", "", http.StatusOK},
		{http.MethodGet, "/api/v1/people/search?query=ali", "", http.StatusOK},
		{http.MethodPut, "/api/v1/components/0/person", `{"person_id": 1}`, http.StatusOK},
		{http.MethodGet, "/api/v1/people/1/components", "", http.StatusOK},
		{http.MethodDelete, "/api/v1/components/0/person", "", http.StatusNoContent},
		{http.MethodPut, "/api/v1/people/1", `{"name": "Alicia"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/people/1", "", http.StatusNoContent},
		{http.MethodGet, "/api/v1/clustering/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/components/x", "", http.StatusBadRequest},
	}

	for _, tc := range tests {
		status, body := do(t, tc.method, srv.URL+tc.path, tc.body)
		if status != tc.status {
			t.Errorf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.status, status, body)
		}
	}
}

func TestRoutes_SubdivisionCommit(t *testing.T) {
	srv := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/api/v1/components/0/subdivision", `{"face_ids": [2]}`)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", status, body)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/v1/stats", "")
	var stats curation.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Components != 3 {
		t.Errorf("expected 3 components after split, got %d", stats.Components)
	}
}
