package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"error": "not_found", "message": "article not found with id abc123"}
//
// Validation failures add the per-field messages:
//
//	{"error": "validation_error", "message": "...", "fields": {"email": "..."}}
//
// so a form can put each message next to its input.

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/sakif/aisolutions-cms/internal/apperror"
)

// maxJSONBody caps JSON request bodies. Uploads have their own limit.
const maxJSONBody = 1 << 20

// unauthorizedMessage is the one message every authentication failure
// gets, whatever the underlying kind.
const unauthorizedMessage = "Invalid or expired credentials"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`            // Machine-readable error type (e.g., "not_found")
	Message string            `json:"message"`          // Human-readable description
	Fields  map[string]string `json:"fields,omitempty"` // Per-field validation messages
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes the first byte, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent; all we can do is log it
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and
// sends it. It is exported so the auth middleware can answer with the
// same body.
//
// ERROR MAPPING:
// This is the only place domain errors (apperror.ErrValidation,
// apperror.ErrNotFound, ...) become HTTP statuses. errors.Is walks the whole
// wrap chain, so "creating article: %w" around an AppError still matches.
//
// Every auth failure kind becomes the same 401 body. The kind was already
// logged by the auth service; telling the client which one it hit would
// turn login into an account oracle.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperror.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: unauthorizedMessage,
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
			errorType = "conflict"
		case errors.Is(err, apperror.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge // 413
			errorType = "payload_too_large"
		case errors.Is(err, apperror.ErrUnsupported):
			status = http.StatusUnsupportedMediaType // 415
			errorType = "unsupported_media_type"
		}

		if status != http.StatusInternalServerError {
			resp := ErrorResponse{Error: errorType, Message: appErr.Message, Fields: appErr.Fields}
			if resp.Fields == nil && appErr.Field != "" {
				resp.Fields = map[string]string{appErr.Field: appErr.Message}
			}
			writeJSON(w, status, resp)
			return
		}
	}

	// Unknown error: the raw message might contain SQL or file paths, so it
	// is logged and never sent.
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// AuthFailure adapts WriteError to auth.ErrorWriter.
func AuthFailure(w http.ResponseWriter, _ *http.Request, err error) {
	WriteError(w, err)
}

// decodeJSON reads a JSON body into dst. Any decoding problem is a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperror.ValidationFailed("body", "request body must be valid JSON matching the expected fields")
	}
	return nil
}

// readBody returns the raw request body, bounded by maxJSONBody.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperror.TooLarge(tooBig.Limit)
		}
		return nil, apperror.ValidationFailed("body", "could not read request body")
	}
	if len(body) == 0 {
		return nil, apperror.ValidationFailed("body", "request body is required")
	}
	return body, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
