package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("catalog: not found")
	ErrConflict = errors.New("catalog: conflict")
)

// APIError is returned for any non-2xx response that has no sentinel.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog: %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("catalog: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func statusError(method, path string, status int, body string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	}
	return &APIError{Method: method, Path: path, StatusCode: status, Body: body}
}
