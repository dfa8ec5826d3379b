// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/pumpline-erp/pumpline/internal/platform/backend"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain and backend errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, backend.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail(err))
	case errors.Is(err, ErrDuplicate), errors.Is(err, backend.ErrConflict):
		Problem(w, http.StatusConflict, "Duplicate", detail(err))
	case errors.Is(err, ErrValidation), errors.Is(err, backend.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail(err))
	case errors.Is(err, ErrForbidden), errors.Is(err, backend.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", detail(err))
	case errors.Is(err, ErrUnauthorized), errors.Is(err, backend.ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", detail(err))
	case errors.Is(err, backend.ErrNetwork):
		Problem(w, http.StatusBadGateway, "Backend Unavailable", detail(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func detail(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) || errors.Is(err, backend.ErrNetwork) {
		return backend.UserMessage(err)
	}
	return err.Error()
}
