package githost

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxRetries is the number of extra attempts made for a failed GET.
const DefaultMaxRetries = 3

const (
	baseDelay = 500 * time.Millisecond
	maxDelay  = 10 * time.Second
	// Retry-After values above this are not waited out; the response is
	// returned to the caller instead.
	maxRetryAfter = 30 * time.Second
)

// RetryTransport retries idempotent requests that fail with a network error
// or a transient upstream status (429, 502, 503, 504). When every attempt
// fails on status, the last response is returned unchanged so the caller can
// inspect it.
type RetryTransport struct {
	Next       http.RoundTripper
	MaxRetries int
	// NewBackOff returns the delay policy for one request. Nil means
	// exponential backoff starting at 500ms and capped at 10s.
	NewBackOff func() backoff.BackOff
	Log        *slog.Logger
}

var _ http.RoundTripper = (*RetryTransport)(nil)

// NewRetryTransport wraps next (http.DefaultTransport when nil).
func NewRetryTransport(next http.RoundTripper, maxRetries int, log *slog.Logger) *RetryTransport {
	return &RetryTransport{Next: next, MaxRetries: maxRetries, Log: log}
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if t.MaxRetries <= 0 || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		return next.RoundTrip(req)
	}

	ctx := req.Context()
	tries := uint(t.MaxRetries) + 1 //nolint:gosec // MaxRetries > 0 checked above
	var attempt uint

	op := func() (*http.Response, error) {
		attempt++
		resp, err := next.RoundTrip(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if !retryableStatus(resp.StatusCode) || attempt >= tries {
			return resp, nil
		}

		wait, hasWait := retryAfter(resp)
		if hasWait && wait > maxRetryAfter {
			return resp, nil
		}
		drain(resp.Body)
		if hasWait {
			return nil, backoff.RetryAfter(int(wait / time.Second))
		}
		return nil, &retryableStatusError{StatusCode: resp.StatusCode}
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(t.backOff()),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, d time.Duration) {
			if t.Log != nil {
				t.Log.Debug("retrying request",
					"method", req.Method, "url", req.URL.String(), "error", err, "wait", d)
			}
		}),
	)
}

func (t *RetryTransport) backOff() backoff.BackOff {
	if t.NewBackOff != nil {
		return t.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.MaxInterval = maxDelay
	return b
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

type retryableStatusError struct {
	StatusCode int
}

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("transient upstream status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

