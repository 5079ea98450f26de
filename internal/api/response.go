package api

import (
	"encoding/json"
	"errors"
	"infinite-experiment/edigate/internal/as2"
	"infinite-experiment/edigate/internal/db/repositories"
	"infinite-experiment/edigate/internal/erp"
	"infinite-experiment/edigate/internal/jobs"
	"infinite-experiment/edigate/internal/logging"
	"infinite-experiment/edigate/internal/models/dtos/responses"
	"infinite-experiment/edigate/internal/services"
	"net/http"
	"time"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	resp := responses.APIResponse[T]{
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	resp := responses.APIResponse[any]{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(resp)
}

// respondWithErrorData reports a failure that still produced a record, such
// as an outbound transaction whose delivery failed
func respondWithErrorData[T any](w http.ResponseWriter, statusCode int, message string, data *T) {
	resp := responses.APIResponse[T]{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     message,
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(resp)
}

// statusForError maps engine errors to HTTP statuses. Unknown errors are
// internal.
func statusForError(err error) int {
	var validationErr *services.ValidationError
	var resolutionErr *erp.ResolutionError
	var sendErr *as2.SendError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPartnerNotFound),
		errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, jobs.ErrPartnerNotScheduled),
		errors.As(err, &resolutionErr):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPartnerInactive),
		errors.Is(err, services.ErrAS2NotConfigured),
		errors.Is(err, repositories.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &sendErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err with its mapped status. Internal errors
// are logged and replaced by a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.Error("[API] Request failed",
			"action", action,
			"path", r.URL.Path,
			"tenant_id", tenantFrom(r),
			"error", err)
		respondWithError(w, status, "Failed to "+action)
		return
	}
	respondWithError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
