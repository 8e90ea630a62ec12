package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"inferd/internal/artifact"
	"inferd/internal/engine"
	"inferd/internal/manager"
	"inferd/internal/vram"
	"inferd/pkg/types"
)

// HTTPError lets a service attach an explicit status code to an error.
type HTTPError interface {
	error
	StatusCode() int
}

// errorStatus maps lifecycle errors onto status codes: invalid ids and task
// conflicts are client errors, a failed download means the model cannot be
// found, and an overfull device is insufficient storage. Anything
// unrecognized is a 500.
func errorStatus(err error) int {
	var he HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case artifact.IsInvalidID(err):
		return http.StatusUnprocessableEntity
	case manager.IsTaskMismatch(err):
		return http.StatusUnprocessableEntity
	case artifact.IsFetchError(err):
		return http.StatusNotFound
	case vram.IsCapacityError(err):
		return http.StatusInsufficientStorage
	case engine.IsUnsupportedTask(err):
		return http.StatusNotImplemented
	case errors.As(err, &he):
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}
