package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"coinwise/internal/core"
	"coinwise/internal/insight"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps domain errors onto status codes. Anything
// unrecognized is a 500 with a generic body; the detail goes to the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var malformed *core.MalformedFilterError
	if errors.As(err, &malformed) {
		writeError(w, http.StatusBadRequest, malformed.Error())
		return
	}
	if errors.Is(err, core.ErrMissingDateRange) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var limited *core.RateLimitedError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterMinutes()*60))
		writeError(w, http.StatusTooManyRequests, fmt.Sprintf(
			"Insight limit reached. Try again in %d minutes.", limited.RetryAfterMinutes()))
		return
	}
	if errors.Is(err, insight.ErrBackendsExhausted) {
		writeError(w, http.StatusServiceUnavailable,
			"Insight generation is temporarily unavailable. Please try again later.")
		return
	}

	if isValidationError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	slog.ErrorContext(r.Context(), "Request failed",
		"error", err, "method", r.Method, "url", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrEmptyUserID,
		core.ErrInvalidKind,
		core.ErrNameTooLong,
		core.ErrZeroDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// decodeBody decodes one JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
