package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"folio/internal/core"
	flog "folio/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

type successBody struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes it as {"error": ...}. Internal errors get a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := flog.FromContext(r.Context())
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Request failed", flog.FieldError, err, flog.FieldPath, r.URL.Path)
		msg = "internal error"
	case status == http.StatusServiceUnavailable:
		logger.ErrorContext(r.Context(), "Store unavailable", flog.FieldError, err, flog.FieldPath, r.URL.Path)
	default:
		logger.DebugContext(r.Context(), "Request rejected", flog.FieldError, err, flog.FieldStatusCode, status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
