package forum

import (
	"errors"
	"net/http"
)

// Engine failure taxonomy. Handlers map these to HTTP statuses with
// StatusCode; anything unrecognized is a persistence failure and
// surfaces as 500 without internal detail.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("authentication required")
	ErrLocked           = errors.New("thread is locked")
	ErrInvalidReference = errors.New("invalid reference")
	ErrAlreadyResolved  = errors.New("report already resolved")
)

func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrLocked):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyResolved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
