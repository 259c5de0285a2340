package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "Invalid page."}
//	{"error": "validation_error", "message": "...", "fields": {"title": ["This field is required."]}}
//
// Clients switch on "error" and render "fields" next to form inputs.
//
// STATUS MAPPING (see WriteError):
//
//	apperror.ErrValidation        → 400
//	apperror.ErrUnauthenticated   → 401 + WWW-Authenticate: Token
//	apperror.ErrNotFound          → 404 (also someone else's review)
//	apperror.ErrMethodNotAllowed  → 405 + Allow
//	apperror.ErrConflict          → 409
//	anything else                 → 500, details logged, never sent
//
// HEADER ORDER MATTERS:
// WWW-Authenticate and Allow must be set before WriteHeader. Once the status
// line is out, later header changes are silently dropped.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/auth"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  apperror.FieldErrors `json:"fields,omitempty"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader, so callers add theirs first.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to a status code and writes it. It matches
// auth.ErrorWriter so the auth middleware renders failures the same way.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"
		var fields apperror.FieldErrors

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
			fields = appErr.Fields
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
			w.Header().Set("WWW-Authenticate", auth.Keyword)
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrMethodNotAllowed):
			status = http.StatusMethodNotAllowed
			errorType = "method_not_allowed"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
				Fields:  fields,
			})
			return
		}
	}

	// Never expose internals to the client. The log line has the details.
	slog.ErrorContext(r.Context(), "unhandled error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// NotFound renders unknown routes in the standard error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, &apperror.AppError{Err: apperror.ErrNotFound, Message: "Not found."})
}

// MethodNotAllowed returns a handler that rejects the request's verb and
// advertises the allowed ones.
func MethodNotAllowed(allowed ...string) http.HandlerFunc {
	allow := strings.Join(allowed, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		if allow != "" {
			w.Header().Set("Allow", allow)
		}
		WriteError(w, r, apperror.MethodNotAllowed(r.Method))
	}
}
