package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON or writeError, so errors
// always have the same shape:
//
//	{"error": "not_found", "message": "innovation not found with id abc123"}
//
// The "error" field is machine-readable; "message" is safe to show to users.

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/whynot-innovations/portal/internal/apperror"
	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/identity"
)

// maxBodyBytes caps request bodies. The largest legitimate body is an
// innovation with a long description.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorStatus maps a domain error to its HTTP status and machine-readable
// type. ok is false for errors that are not *apperror.AppError.
func errorStatus(err error) (status int, errorType string, ok bool) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", false
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", true
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", true
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", true
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", true
	case errors.Is(err, apperror.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error", true
	}
	return http.StatusInternalServerError, "internal_error", true
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it. Configuration errors keep their message, which names the
// missing setting. Unknown errors become a generic 500 and are logged; their
// text may contain SQL or provider details and is never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	status, errorType, ok := errorStatus(err)
	if !ok {
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: "An internal error occurred",
		})
		return
	}

	var appErr *apperror.AppError
	errors.As(err, &appErr)
	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}

// decodeJSON reads a JSON body into dst. A malformed, empty or oversized
// body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where the body may be
// omitted. An empty body leaves dst untouched, whatever the Content-Length.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return apperror.ValidationFailed("body", "invalid JSON body")
}

// Authenticator identifies the caller of a protected endpoint.
// *service.Guard implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Identity, error)
	RequirePrivileged(ctx context.Context, token string) (*identity.Identity, error)
}

type accessCheck func(ctx context.Context, token string) (*identity.Identity, error)

// rejectBody answers a request whose body failed to decode. A caller that
// check refuses gets the 401 or 403 instead of the body error.
func rejectBody(w http.ResponseWriter, r *http.Request, check accessCheck, bodyErr error) {
	if _, err := check(r.Context(), bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeError(w, bodyErr)
}

// bearerToken returns the request's bearer token, or "" when there is none.
// The service layer turns "" into "ID token required".
func bearerToken(r *http.Request) string {
	token, err := auth.BearerToken(r)
	if err != nil {
		return ""
	}
	return token
}
