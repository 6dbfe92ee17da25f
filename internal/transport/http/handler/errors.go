package handler

import (
	"errors"
	"net/http"

	"github.com/go-verify-api/internal/domain"
)

// httpError maps domain sentinel errors to HTTP status codes. Anything
// unrecognised is a 500 so infrastructure failures never masquerade as
// client mistakes.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCode):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrNoActiveChallenge):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrValueConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrDeliveryFailed):
		status = http.StatusBadGateway
	}
	writeError(w, status, err.Error())
}
