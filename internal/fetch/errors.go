// Package fetch holds the plumbing shared by the issue-tracker and
// code-review clients: pagination, date-range filtering and API errors.
package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned when a service rejects our credentials.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrMissingCredentials is returned on first use of a client that has no
	// credentials configured. It matches ErrUnauthorized.
	ErrMissingCredentials = fmt.Errorf("%w: no credentials configured", ErrUnauthorized)

	// ErrPageLimit is returned when pagination hits the page cap.
	ErrPageLimit = errors.New("page limit reached")
)

// APIError is a non-2xx response from a remote service.
type APIError struct {
	Service    string
	URL        string
	Status     string
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}
