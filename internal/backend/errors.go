package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError carries the HTTP status the support backend answered with.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
}

// StatusCode exposes the status for callers that only care about the class
// of failure.
func (e *APIError) StatusCode() int { return e.Status }

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}
