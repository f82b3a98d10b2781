package remote

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// An Error is a response from the remote API with an unexpected status code.
//
// The response body is kept verbatim so failures can be correlated against
// remote-side logs without the payload being paraphrased along the way.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound returns true if the error is a remote 404. The remote system
// reporting a resource gone is a legitimate outcome and must be
// distinguishable from a transport failure.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsClientError returns true for 4xx responses other than 404. These
// indicate a definitionally invalid request; repeating it will not succeed
// and the caller must act.
func IsClientError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusNotFound
	}
	return false
}

// IsServerError returns true for 5xx responses.
func IsServerError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode >= 500
	}
	return false
}

// Retryable returns true if the call may be retried: 5xx responses and
// transport-level failures (connection refused, timeouts). Client errors and
// 404 are never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode >= 500
	}
	// Not an HTTP status at all: the request never produced a response.
	return true
}
