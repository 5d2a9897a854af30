// Package retry wraps a single logical network call with
// classification-driven retry. Every provider request in this module goes
// through [Do]: it issues a JSON POST expecting an SSE response, classifies
// failures by status code, honours Retry-After, and backs off exponentially
// between attempts. Retry bookkeeping lives entirely inside Do; the caller's
// [Config] is never mutated.
package retry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mitkury/aiwrapper/internal/utils"
)

const (
	// DefaultMaxRetries is the retry budget applied when Config.MaxRetries is zero.
	DefaultMaxRetries = 6

	// DefaultBaseBackoff seeds the exponential backoff sequence.
	DefaultBaseBackoff = 100 * time.Millisecond

	// DefaultMaxBackoff caps the computed backoff delay.
	DefaultMaxBackoff = 3 * time.Second

	// maxErrorBodySize caps how much of an error response body is read into
	// memory for diagnostics.
	maxErrorBodySize int64 = 1 * 1024 * 1024
)

// BadRequestHook is consulted when a request fails with HTTP 400. It may
// inspect the response and mutate the request (the policy's own copy, never
// caller configuration) before a retry. Returning retry=false makes the 400
// terminal, which is also the default when no hook is installed.
// consumeBudget=false retries without decrementing the budget; the hard
// ceiling of MaxRetries+1 total attempts still applies.
type BadRequestHook func(response *http.Response, request *Request) (retry bool, consumeBudget bool)

// Config tunes the retry policy. The zero value is usable: zero-valued
// fields are replaced with the documented defaults inside Do.
type Config struct {
	// MaxRetries is the retry budget after the first attempt. Default: 6.
	MaxRetries int

	// BaseBackoff seeds the exponential backoff. Default: 100ms.
	BaseBackoff time.Duration

	// MaxBackoff caps each computed delay. Default: 3s.
	MaxBackoff time.Duration

	// OnBadRequest decides whether a 400 response is retried. Nil means
	// 400 responses are terminal.
	OnBadRequest BadRequestHook
}

func (config Config) withDefaults() Config {
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.BaseBackoff == 0 {
		config.BaseBackoff = DefaultBaseBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	return config
}

// Request describes one logical POST. Do owns this value for the duration of
// the call; a BadRequestHook may mutate it between attempts.
type Request struct {
	// URL is the absolute endpoint URL.
	URL string

	// APIKey, when non-empty, is sent as a Bearer token. Providers that
	// authenticate differently leave it empty and set their own Headers.
	APIKey string

	// Headers are additional request headers, applied after the defaults so
	// they can override Authorization if needed.
	Headers map[string]string

	// Body is JSON-marshaled into the request body.
	Body any
}

// Do issues the request and retries according to config until it gets a 2xx
// response, a terminal error, an exhausted budget, or a cancelled context.
//
// Classification: network-level failures and 5xx are retryable; 429 is
// retryable and honours Retry-After (seconds or HTTP-date); 401 surfaces as
// [ErrAuthentication]; 400 is decided by config.OnBadRequest (terminal by
// default); any other 4xx is terminal. The backoff delay doubles from
// BaseBackoff up to MaxBackoff; a Retry-After header overrides the computed
// delay for that sleep. A hard ceiling of MaxRetries+1 total attempts holds
// even when the hook declines budget consumption.
//
// On success the response body is left open for streaming; the caller must
// close it. Cancellation aborts both in-flight requests and backoff sleeps,
// surfacing the context error.
func Do(ctx context.Context, client *http.Client, config Config, request *Request) (*http.Response, error) {
	config = config.withDefaults()

	if client == nil {
		client = http.DefaultClient
	}

	budget := config.MaxRetries
	backoff := config.BaseBackoff
	maxAttempts := config.MaxRetries + 1

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := send(ctx, client, request)
		if err == nil {
			return response, nil
		}

		// Cancellation during the request surfaces as the context error, not
		// as a retryable network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err

		retryable, consumeBudget, terminalErr := classify(err, config.OnBadRequest, request)
		if terminalErr != nil {
			return nil, terminalErr
		}
		if !retryable {
			return nil, err
		}

		if consumeBudget {
			if budget == 0 {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, lastErr)
			}
			budget--
		}

		// Exponential progression: each delay doubles the previous backoff,
		// capped at MaxBackoff, so delays are non-decreasing.
		delay := min(backoff*2, config.MaxBackoff)
		backoff = delay

		// A server-provided Retry-After overrides the computed delay for
		// this sleep without disturbing the backoff progression.
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter >= 0 {
			delay = httpErr.RetryAfter
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// classify maps a failed attempt onto the retry decision. terminalErr, when
// non-nil, replaces the raw error (e.g. wrapping 401 in ErrAuthentication).
func classify(err error, onBadRequest BadRequestHook, request *Request) (retryable, consumeBudget bool, terminalErr error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		// No response at all: connection refused, DNS failure, reset
		// mid-handshake. Always worth retrying.
		return true, true, nil
	}

	switch {
	case httpErr.StatusCode == http.StatusUnauthorized:
		return false, false, fmt.Errorf("%w: %w", ErrAuthentication, httpErr)

	case httpErr.StatusCode == http.StatusBadRequest:
		if onBadRequest == nil {
			return false, false, nil
		}
		retry, consume := onBadRequest(httpErr.response, request)
		return retry, consume, nil

	case httpErr.StatusCode == http.StatusTooManyRequests:
		return true, true, nil

	case httpErr.StatusCode >= 500:
		return true, true, nil

	default:
		// Remaining 4xx (404, 403, 422, ...): the request itself is wrong;
		// repeating it cannot help.
		return false, false, nil
	}
}

// send performs one attempt. A non-2xx response is drained, closed, and
// returned as an *HTTPError; a 2xx response is returned with its body open
// for SSE consumption.
func send(ctx context.Context, client *http.Client, request *Request) (*http.Response, error) {
	jsonBody, err := json.Marshal(request.Body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, request.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")
	if request.APIKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+request.APIKey)
	}
	for key, value := range request.Headers {
		httpRequest.Header.Set(key, value)
	}

	response, err := client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return response, nil
	}

	defer utils.CloseWithLog(response.Body)
	errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
	if readErr != nil {
		errorBody = []byte(fmt.Sprintf("(failed to read body: %v)", readErr))
	}

	return nil, &HTTPError{
		StatusCode: response.StatusCode,
		Body:       utils.TruncateString(string(errorBody), utils.DefaultMaxStringLength),
		RetryAfter: parseRetryAfter(response),
		response:   response,
	}
}

// parseRetryAfter reads the Retry-After header in either of its two legal
// forms (delay seconds or an HTTP-date) and converts it to a delay clamped
// to >= 0. Returns noRetryAfter when absent or unparseable.
func parseRetryAfter(response *http.Response) time.Duration {
	value := response.Header.Get("Retry-After")
	if value == "" {
		return noRetryAfter
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(seconds)*time.Second, 0)
	}

	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}

	return noRetryAfter
}
