package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-graph/internal/curation"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	engine *curation.Engine
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(engine *curation.Engine) *StatsHandler {
	return &StatsHandler{engine: engine}
}

// Get returns data set counts.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Stats())
}
