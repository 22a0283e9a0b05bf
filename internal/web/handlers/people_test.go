package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/logger"
	"github.com/kozaktomas/face-graph/internal/registry"
)

func TestPeopleHandler_CRUD(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))
	handler := NewPeopleHandler(engine, logger.Discard())

	recorder := httptest.NewRecorder()
	handler.Create(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/people", bytes.NewBufferString(`{"name": "  Jan Novák "}`)))
	assertStatusCode(t, recorder, http.StatusCreated)
	var created registry.Person
	parseJSONResponse(t, recorder, &created)
	if created.ID != 1 || created.Name != "Jan Novák" {
		t.Errorf("unexpected person %+v", created)
	}

	req := requestWithChiParams(
		httptest.NewRequest(http.MethodPut, "/api/v1/people/1", bytes.NewBufferString(`{"name": "Jan Nový"}`)),
		map[string]string{"id": "1"},
	)
	recorder = httptest.NewRecorder()
	handler.Update(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/people", nil))
	var people []registry.Person
	parseJSONResponse(t, recorder, &people)
	if len(people) != 1 || people[0].Name != "Jan Nový" {
		t.Errorf("unexpected people %+v", people)
	}

	req = requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/people/1", nil), map[string]string{"id": "1"})
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestPeopleHandler_Create_EmptyName(t *testing.T) {
	handler := NewPeopleHandler(newTestEngine(t, testConfig(t)), logger.Discard())

	recorder := httptest.NewRecorder()
	handler.Create(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/people", bytes.NewBufferString(`{"name": "   "}`)))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestPeopleHandler_Search(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))
	handler := NewPeopleHandler(engine, logger.Discard())
	for _, name := range []string{"Alice Smith", "Bob Jones"} {
		if _, err := engine.CreatePerson(name); err != nil {
			t.Fatal(err)
		}
	}

	recorder := httptest.NewRecorder()
	handler.Search(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/people/search?query=bob", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var matches []curation.PersonMatch
	parseJSONResponse(t, recorder, &matches)
	if len(matches) != 1 || matches[0].Name != "Bob Jones" || matches[0].MatchedOn != "prefix" {
		t.Errorf("unexpected matches %+v", matches)
	}

	recorder = httptest.NewRecorder()
	handler.Search(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/people/search?query=", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	if recorder.Body.String() != "[]\n" {
		t.Errorf("expected empty list, got %q", recorder.Body.String())
	}
}

func TestPeopleHandler_Components(t *testing.T) {
	engine := newTestEngine(t, testConfig(t))
	handler := NewPeopleHandler(engine, logger.Discard())
	p, err := engine.CreatePerson("Alice")
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.AssignPerson(1, p.ID); err != nil {
		t.Fatal(err)
	}

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/people/1/components", nil), map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()
	handler.Components(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var pc curation.PersonComponents
	parseJSONResponse(t, recorder, &pc)
	if len(pc.Components) != 1 || pc.Components[0].ID != 1 || pc.Components[0].Size != 2 {
		t.Errorf("unexpected components %+v", pc.Components)
	}
}
