package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syncboard/syncboard/internal/tracker"
)

// Envelope is the response shape for every mutation and query operation.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondOK(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// respondError maps a tracker error class to an HTTP status and emits the
// failure envelope. Internal errors are logged with full context and surfaced
// as a generic message.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	msg := err.Error()

	switch {
	case errors.Is(err, tracker.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, tracker.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, tracker.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, tracker.ErrDependencyUnmet):
		status, code = http.StatusUnprocessableEntity, "dependency_unmet"
	case errors.Is(err, tracker.ErrAuthentication):
		status, code = http.StatusUnauthorized, "authentication_error"
	default:
		slog.Error("internal error", "error", err)
		msg = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: code, Message: msg})
}
