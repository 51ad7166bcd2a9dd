package gh

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// ErrAlreadyExists marks a create call that raced with another writer. The
// resource is there, which is what the caller wanted, so label reconciliation
// treats it as success.
var ErrAlreadyExists = errors.New("resource already exists")

// APIError is the terminal form of a failed call: the HTTP status and the
// endpoint that produced it, plus whether retrying could have helped.
type APIError struct {
	Status    int
	Endpoint  string
	Transient bool
	Err       error
}

func (e *APIError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s error: %v", e.Endpoint, kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error (HTTP %d): %v", e.Endpoint, kind, e.Status, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// RemoteMessage returns the human-readable message GitHub attached to the
// failure, falling back to the wrapped error text.
func (e *APIError) RemoteMessage() string {
	var ghErr *github.ErrorResponse
	if errors.As(e.Err, &ghErr) && ghErr.Message != "" {
		return ghErr.Message
	}
	return e.Err.Error()
}

// IsTransient reports whether the error was retryable. Exhausted retries
// still surface as transient so callers can tell outage from rejection.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient
}

// IsAlreadyExists reports whether a create call lost an "already exists"
// race.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsNotFound reports whether the remote said 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// classify sorts a failed call into transient (network trouble, rate limits,
// 5xx) or permanent (every other 4xx). A 422 whose body says already_exists
// is permanent but wraps ErrAlreadyExists so idempotent creates can absorb it.
func classify(endpoint string, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Status: rateErr.Response.StatusCode, Endpoint: endpoint, Transient: true, Err: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{Status: http.StatusForbidden, Endpoint: endpoint, Transient: true, Err: err}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		status := ghErr.Response.StatusCode
		switch {
		case status == http.StatusUnprocessableEntity && hasErrorCode(ghErr, "already_exists"):
			return &APIError{Status: status, Endpoint: endpoint, Err: fmt.Errorf("%w: %v", ErrAlreadyExists, err)}
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			return &APIError{Status: status, Endpoint: endpoint, Transient: true, Err: err}
		default:
			return &APIError{Status: status, Endpoint: endpoint, Err: err}
		}
	}

	// No HTTP response at all: connection refused, reset, DNS failure.
	return &APIError{Endpoint: endpoint, Transient: true, Err: err}
}

func hasErrorCode(ghErr *github.ErrorResponse, code string) bool {
	for _, e := range ghErr.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}
