package resource

import (
	"errors"
	"net/http"

	"github.com/shrek82/jrest/model"
)

var (
	// ErrDecode is returned when the request body is missing or is not an entity object.
	ErrDecode = model.ErrDecode
	// ErrNotFound is returned when the addressed entity does not exist.
	ErrNotFound = model.ErrNotFound
	// ErrDenied is returned when the policy refuses access to an entity.
	ErrDenied = errors.New("access denied")
)

// ValidationError wraps the failure returned by a policy's Validate.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StatusOf maps an error returned by a Controller to an HTTP status code.
// Denials map to 401.
func StatusOf(err error) int {
	var verr *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, ErrDenied):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
