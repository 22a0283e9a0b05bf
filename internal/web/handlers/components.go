package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/logger"
)

// ComponentsHandler serves component inspection, subdivision and assignment.
type ComponentsHandler struct {
	engine *curation.Engine
	log    *logger.Logger
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(engine *curation.Engine, log *logger.Logger) *ComponentsHandler {
	return &ComponentsHandler{engine: engine, log: log}
}

// SubdivisionRequest commits a split.
type SubdivisionRequest struct {
	FaceIDs []int64 `json:"face_ids"`
}

// AssignRequest assigns a person to a component.
type AssignRequest struct {
	PersonID *int64 `json:"person_id"`
}

func (h *ComponentsHandler) componentID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return 0, false
	}
	return int(id), true
}

// RandomUnassigned picks a component that still needs a person.
func (h *ComponentsHandler) RandomUnassigned(w http.ResponseWriter, r *http.Request) {
	id, err := h.engine.RandomUnassignedComponent()
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"component_id": id})
}

// Get returns component detail.
func (h *ComponentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	detail, err := h.engine.Component(id)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Compare returns the closest face pairs between two components.
func (h *ComponentsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	other, err := urlInt(r, "otherId")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	numPairs, err := queryInt(r, "num_pairs", constants.DefaultComparePairs)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}

	pairs, err := h.engine.CompareComponents(id, int(other), numPairs)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"component1_id": id,
		"component2_id": other,
		"pairs":         pairs,
	})
}

// ProposeSubdivision returns a Louvain split of the component without
// saving it.
func (h *ComponentsHandler) ProposeSubdivision(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	sub, err := h.engine.ProposeSubdivision(id)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// SubmitSubdivision moves the given faces into a new component.
func (h *ComponentsHandler) SubmitSubdivision(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	var req SubdivisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.log, err)
		return
	}

	newID, err := h.engine.SubmitSubdivision(id, req.FaceIDs)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{
		"component_id":     id,
		"new_component_id": newID,
	})
}

// AssignPerson sets the person of a component.
func (h *ComponentsHandler) AssignPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	if req.PersonID == nil {
		respondAppError(w, h.log, apperror.BadInput("person_id is required"))
		return
	}

	if err := h.engine.AssignPerson(id, *req.PersonID); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"component_id": id, "person_id": *req.PersonID})
}

// UnassignPerson clears the person of a component.
func (h *ComponentsHandler) UnassignPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := h.componentID(w, r)
	if !ok {
		return
	}
	if err := h.engine.UnassignPerson(id); err != nil {
		respondAppError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
