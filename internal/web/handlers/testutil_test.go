package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-graph/internal/config"
	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/database"
	"github.com/kozaktomas/face-graph/internal/database/mock"
	"github.com/kozaktomas/face-graph/internal/graph"
	"github.com/kozaktomas/face-graph/internal/imaging"
	"github.com/kozaktomas/face-graph/internal/logger"
	"github.com/kozaktomas/face-graph/internal/registry"
)

// testConfig creates a config rooted in a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataRoot = t.TempDir()
	return cfg
}

// newTestEngine loads three groups of faces (ids 1..6) split into the
// components [[1 2 3] [4 5] [6]].
func newTestEngine(t *testing.T, cfg *config.Config) *curation.Engine {
	t.Helper()
	store := mock.NewMockFaceStore()
	store.AddEmbeddings(
		[]float32{1, 0, 0},
		[]float32{0.99, 0.01, 0},
		[]float32{0.98, 0.02, 0},
		[]float32{0, 1, 0},
		[]float32{0.01, 0.99, 0},
		[]float32{0, 0, 1},
	)

	table, err := database.LoadEmbeddingTable(context.Background(), store)
	if err != nil {
		t.Fatalf("LoadEmbeddingTable() error = %v", err)
	}
	g, err := graph.NewBuilder(0.4).Build(context.Background(), table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	reg, err := registry.Create(registry.NewFileStore(cfg), [][]int64{{1, 2, 3}, {4, 5}, {6}})
	if err != nil {
		t.Fatalf("registry.Create() error = %v", err)
	}

	opts := curation.OptionsFromConfig(cfg)
	opts.Partitioner.Seed = 42
	engine, err := curation.New(curation.Deps{
		Table:    table,
		Store:    store,
		Graph:    g,
		Registry: reg,
		Crops:    imaging.NewCropStore(filepath.Join(cfg.DataRoot, "faces_extr")),
		Log:      logger.Discard(),
	}, opts)
	if err != nil {
		t.Fatalf("curation.New() error = %v", err)
	}
	return engine
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
