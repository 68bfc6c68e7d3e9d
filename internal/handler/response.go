package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// ENVELOPE FORMAT:
// Every successful read returns the same shape:
//   {"count": 3, "data": [...]}
// and every failure returns:
//   {"errorMessage": "experience not found with id abc123"}
//
// This makes it easy for the frontend to parse responses — it always knows
// what fields to expect, regardless of whether it's a list, a single record,
// a 400, or a 500.
//
// An EMPTY filter result is not a failure: it still gets a 200 with count 0
// and an informational errorMessage annotation alongside the empty data, so
// clients that only look at the message still learn why the list is empty.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/voyage/internal/apperror"
)

// ListResponse is the standard success envelope.
type ListResponse struct {
	Count int    `json:"count"`
	Data  any    `json:"data"`
	// Message annotates an empty-but-successful result ("no experiences found
	// for type X"). Omitted everywhere else.
	Message string `json:"errorMessage,omitempty"`
}

// ErrorResponse is the standard failure envelope.
type ErrorResponse struct {
	Message string `json:"errorMessage"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeList wraps a slice in the count/data envelope. When the slice is empty
// and emptyMessage is non-empty, the message rides along as an annotation —
// the status stays 200 because an empty result is a valid answer.
func writeList(w http.ResponseWriter, status, count int, data any, emptyMessage string) {
	resp := ListResponse{Count: count, Data: data}
	if count == 0 && emptyMessage != "" {
		resp.Message = emptyMessage
	}
	writeJSON(w, status, resp)
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// The service layer returns apperror.ErrValidation, apperror.ErrNotFound, etc.
// This function maps those to 400, 404, etc. The service layer should not know
// about HTTP status codes — a different transport would map the same sentinels
// its own way.
//
// errors.Is() walks the entire error chain (via Unwrap()) to see if the
// sentinel appears anywhere, so wrapping with fmt.Errorf("...: %w", err) in
// the service layer never hides the classification.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusBadGateway // 502
		}

		writeJSON(w, status, ErrorResponse{Message: appErr.Message})
		return
	}

	// Unknown error — return a generic 500.
	// NEVER expose internal error details to the client: the raw message might
	// contain SQL queries, file paths, or other sensitive info.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Message: "an internal error occurred",
	})
}
