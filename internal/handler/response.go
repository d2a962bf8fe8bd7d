package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tdhoang/authcore/internal/apperror"
)

// ErrorResponse is the standard error format returned by every endpoint.
// The message for credential failures is always the constant "unauthorized"
// string, so responses never reveal whether an account exists.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "unauthorized"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers and the
// status line go out before the body; once Encode has written, they are fixed.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a service error into an HTTP response.
//
// Mapping:
//
//	ErrUnauthorized → 401  (constant body — no account enumeration)
//	ErrValidation   → 400  (bad input, including bad reset codes)
//	ErrDuplicate    → 400  (registration collision)
//	ErrNotFound     → 404
//	ErrConflict     → 409  (store-level failure surfaced to the client)
//	anything else   → 500  with a generic message; the raw error stays in logs
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusBadRequest
			errorType = "duplicate"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error. Never expose internal details to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}
