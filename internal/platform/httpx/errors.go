// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the HTTP layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// RespondError maps errors to RFC7807 responses. detail is the user-facing text; the
// raw error is never echoed for unmapped errors.
func RespondError(w http.ResponseWriter, err error, detail string) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", detail)
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", detail)
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", detail)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", detail)
	}
}
