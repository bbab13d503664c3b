package peertube

import (
	"errors"
	"fmt"
	"net/http"

	"ptsync/internal/httpx"
)

// Sentinel errors for remote platform conditions.
var (
	// ErrRemoteUnavailable indicates a transient network or auth failure
	// talking to the PeerTube instance. Scoped to the current video; the
	// run continues.
	ErrRemoteUnavailable = errors.New("peertube: instance unavailable")
	// ErrRemoteRejected indicates the instance declined the request
	// (bad payload). Scoped to the current video.
	ErrRemoteRejected = errors.New("peertube: request rejected")
	// ErrNotFound indicates the requested video does not exist remotely.
	ErrNotFound = errors.New("peertube: video not found")
)

// APIError wraps remote API errors with operation context.
type APIError struct {
	// Op is the API operation that failed ("upload", "update", "search", ...).
	Op string
	// Status is the HTTP status code, when one was received.
	Status int
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("peertube: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("peertube: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *APIError) Unwrap() error { return e.Err }

// classify maps transport-level errors onto the remote error taxonomy.
// Auth failures (401/403) count as unavailable: credentials and tokens are
// run-scoped, so the next run may succeed without a payload change.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return &APIError{Op: op, Status: statusErr.StatusCode, Err: ErrNotFound}
		case statusErr.StatusCode == http.StatusUnauthorized,
			statusErr.StatusCode == http.StatusForbidden:
			return &APIError{Op: op, Status: statusErr.StatusCode, Err: ErrRemoteUnavailable}
		case statusErr.StatusCode >= 500:
			return &APIError{Op: op, Status: statusErr.StatusCode, Err: ErrRemoteUnavailable}
		default:
			return &APIError{Op: op, Status: statusErr.StatusCode, Err: fmt.Errorf("%w: %s", ErrRemoteRejected, statusErr.Body)}
		}
	}

	var rateErr *httpx.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Op: op, Status: rateErr.StatusCode, Err: ErrRemoteUnavailable}
	}

	// Circuit open, timeouts, DNS failures and the like
	return &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)}
}
