package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"agencycrm/activity"
)

// envelope is the shared response wrapper: {success, data, message} on
// success, {success:false, message, errors?} on failure.
type envelope struct {
	Success bool                  `json:"success"`
	Data    any                   `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
	Errors  []activity.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func writeValidationError(w http.ResponseWriter, fields []activity.FieldError) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Message: "validation failed",
		Errors:  fields,
	})
}

// writeServiceError maps domain errors onto the response envelope. Raw
// persistence errors are logged server-side and never reach the caller.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *activity.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeValidationError(w, vErr.Fields)
	case errors.Is(err, activity.ErrNotFound):
		writeError(w, http.StatusNotFound, "activity not found")
	case errors.Is(err, activity.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	default:
		log.Printf("[api] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
