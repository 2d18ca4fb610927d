package answer

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrBackendNotConfigured is returned when no backend address is configured.
// No network call is attempted.
var ErrBackendNotConfigured = errors.New("backend URL not configured")

// UnavailableError means the backend could not be reached at all.
type UnavailableError struct {
	URL string
	Err error
}

func (e *UnavailableError) Error() string {
	return "backend unavailable at " + e.URL + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// StatusError means the backend answered with a non-success status. Body is
// for logs only and never part of Error.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "HTTP error! status: " + strconv.Itoa(e.StatusCode)
}

// MalformedResponseError means a success status came with a body that has no
// usable answer.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return "malformed backend response"
	}
	return fmt.Sprintf("malformed backend response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a connection-level backend failure.
func IsUnavailable(err error) bool {
	var unavailable *UnavailableError
	return errors.As(err, &unavailable)
}
