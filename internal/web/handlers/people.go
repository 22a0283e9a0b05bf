package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/logger"
)

// PeopleHandler serves the people registry.
type PeopleHandler struct {
	engine *curation.Engine
	log    *logger.Logger
}

// NewPeopleHandler creates a new people handler
func NewPeopleHandler(engine *curation.Engine, log *logger.Logger) *PeopleHandler {
	return &PeopleHandler{engine: engine, log: log}
}

// PersonRequest creates or renames a person.
type PersonRequest struct {
	Name string `json:"name"`
}

func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.People())
}

func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	p, err := h.engine.CreatePerson(req.Name)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// Search ranks people against the query parameter.
func (h *PeopleHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", constants.DefaultPersonSearchLimit)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	query := r.URL.Query().Get("query")
	h.log.WithField("query", sanitizeForLog(query)).Debug("person search")

	matches, err := h.engine.SearchPeople(query, limit)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	if matches == nil {
		matches = []curation.PersonMatch{}
	}
	respondJSON(w, http.StatusOK, matches)
}

func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	var req PersonRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	p, err := h.engine.UpdatePerson(id, req.Name)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	if err := h.engine.DeletePerson(id); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Components lists the components assigned to a person.
func (h *PeopleHandler) Components(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	pc, err := h.engine.PersonComponents(id)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, pc)
}
