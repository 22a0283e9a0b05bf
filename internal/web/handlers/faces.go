package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-graph/internal/constants"
	"github.com/kozaktomas/face-graph/internal/curation"
	"github.com/kozaktomas/face-graph/internal/logger"
)

// FacesHandler serves face sampling, similarity search and crops.
type FacesHandler struct {
	engine *curation.Engine
	log    *logger.Logger
}

// NewFacesHandler creates a new faces handler
func NewFacesHandler(engine *curation.Engine, log *logger.Logger) *FacesHandler {
	return &FacesHandler{engine: engine, log: log}
}

// Random returns uniformly sampled faces.
func (h *FacesHandler) Random(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", constants.DefaultRandomFaceCount)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	faces, err := h.engine.RandomFaces(count)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, faces)
}

// Get returns stored face metadata.
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	face, err := h.engine.Face(r.Context(), id)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, face)
}

// Similar returns faces sampled across distance buckets.
func (h *FacesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	count, err := queryInt(r, "count", constants.DefaultSimilarCount)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	perBucket, err := queryInt(r, "per_bucket", constants.DefaultSimilarPerBucket)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}

	res, err := h.engine.SimilarFaces(id, count, perBucket)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Crop serves the JPEG crop of a face.
func (h *FacesHandler) Crop(w http.ResponseWriter, r *http.Request) {
	id, err := urlInt(r, "id")
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}

	data, err := h.engine.FaceCrop(id, size)
	if err != nil {
		respondAppError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
