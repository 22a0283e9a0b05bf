package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/logger"
)

func TestFacesHandler_Random(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	recorder := httptest.NewRecorder()
	handler.Random(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/faces/random?count=4", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var faces []curation.FaceInfo
	parseJSONResponse(t, recorder, &faces)
	if len(faces) != 4 {
		t.Errorf("expected 4 faces, got %d", len(faces))
	}
}

func TestFacesHandler_Random_InvalidCount(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	for _, query := range []string{"?count=0", "?count=abc", "?count=5000"} {
		recorder := httptest.NewRecorder()
		handler.Random(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/faces/random"+query, nil))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	}
}

func TestFacesHandler_Get(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/3", nil), map[string]string{"id": "3"})
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var face map[string]any
	parseJSONResponse(t, recorder, &face)
	if face["id"] != float64(3) || face["img_width"] != float64(100) {
		t.Errorf("unexpected face %v", face)
	}

	req = requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/99", nil), map[string]string{"id": "99"})
	recorder = httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestFacesHandler_Similar(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/faces/1/similar?count=10&per_bucket=5", nil),
		map[string]string{"id": "1"},
	)
	recorder := httptest.NewRecorder()
	handler.Similar(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var res curation.SimilarResult
	parseJSONResponse(t, recorder, &res)
	if res.Query.ID != 1 {
		t.Errorf("expected query face 1, got %d", res.Query.ID)
	}
	// Every other face is either a near duplicate or orthogonal.
	if len(res.Similar) != 0 {
		t.Errorf("expected no similar faces, got %+v", res.Similar)
	}
}

func TestFacesHandler_Similar_Errors(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	tests := []struct {
		name   string
		id     string
		query  string
		status int
	}{
		{"UnknownFace", "99", "", http.StatusNotFound},
		{"InvalidID", "abc", "", http.StatusBadRequest},
		{"InvalidPerBucket", "1", "?per_bucket=0", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := requestWithChiParams(
				httptest.NewRequest(http.MethodGet, "/api/v1/faces/"+tc.id+"/similar"+tc.query, nil),
				map[string]string{"id": tc.id},
			)
			recorder := httptest.NewRecorder()
			handler.Similar(recorder, req)
			assertStatusCode(t, recorder, tc.status)
		})
	}
}

func TestFacesHandler_Crop_Missing(t *testing.T) {
	handler := NewFacesHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/faces/1/crop", nil), map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()
	handler.Crop(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "no crop for face 1")
}
