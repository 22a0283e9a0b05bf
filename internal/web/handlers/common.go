package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-graph/internal/apperror"
	"github.com/kozaktomas/face-graph/internal/logger"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps an error kind onto an HTTP status. Uncategorized
// errors are logged and reported as internal errors.
func respondAppError(w http.ResponseWriter, log *logger.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch appErr.Kind {
	case apperror.KindNotFound:
		respondError(w, http.StatusNotFound, appErr.Message)
	case apperror.KindBadInput:
		respondError(w, http.StatusBadRequest, appErr.Message)
	default:
		log.WithError(err).Error("data integrity failure")
		respondError(w, http.StatusInternalServerError, appErr.Error())
	}
}

// urlInt parses an integer chi URL parameter.
func urlInt(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperror.BadInput("invalid %s", name)
	}
	return v, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperror.BadInput("invalid %s", name)
	}
	return v, nil
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.BadInput(errInvalidRequestBody)
	}
	return nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
