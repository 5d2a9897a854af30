package retry

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrAuthentication marks a 401 response. Authentication failures are
	// terminal: retrying with the same credentials cannot succeed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRetryExhausted marks a request that failed after consuming its full
	// retry budget or hitting the total-attempt ceiling. It wraps the last
	// underlying error so callers can unwrap either.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// noRetryAfter is the RetryAfter value used when the header is absent.
const noRetryAfter = time.Duration(-1)

// HTTPError describes a non-2xx response from a provider endpoint. The body
// is captured (truncated) for diagnostics and RetryAfter carries the parsed
// Retry-After header, or -1 when the header was absent or unparseable.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration

	// response is kept (body already drained) so the bad-request hook can
	// inspect headers and status without re-reading the network.
	response *http.Response
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, e.Body)
}
