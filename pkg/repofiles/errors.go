package repofiles

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds recorded in FetchEvent.ErrorKind.
const (
	ErrorKindInvalidURL = "invalid_url"
	ErrorKindFetch      = "fetch"
	ErrorKindUpstream   = "upstream"
	ErrorKindInternal   = "internal"
)

// InvalidURLError is returned when a repository URL does not match
// <host>/<owner>/<repo>.
type InvalidURLError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e InvalidURLError) Error() string {
	return fmt.Sprintf("invalid repository URL %q: %s", e.URL, e.Reason)
}

// FetchError is returned when retrieving or decoding the entry at Path fails
// for a reason other than an upstream status. Err is the underlying cause.
type FetchError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e FetchError) Error() string {
	return fmt.Sprintf("fetch %q: %v", displayPath(e.Path), e.Err)
}

// Unwrap returns the underlying cause.
func (e FetchError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when the hosting service answers a request for
// Path with a non-success status.
type UpstreamError struct {
	Path       string
	StatusCode int
	Message    string
	// RateLimit is set when the service reported an exhausted rate limit.
	RateLimit bool
}

// Error implements the error interface.
func (e UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("upstream returned %d for %q: %s", e.StatusCode, displayPath(e.Path), msg)
}

// RateLimited reports whether the request was rejected by a rate limiter.
func (e UpstreamError) RateLimited() bool {
	return e.RateLimit || e.StatusCode == http.StatusTooManyRequests
}

// NotFound reports whether the requested path or repository does not exist.
func (e UpstreamError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ErrorKind classifies err into one of the ErrorKind constants, or "" for nil.
func ErrorKind(err error) string {
	var (
		invalid  InvalidURLError
		upstream UpstreamError
		fetch    FetchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return ErrorKindInvalidURL
	case errors.As(err, &upstream):
		return ErrorKindUpstream
	case errors.As(err, &fetch):
		return ErrorKindFetch
	default:
		return ErrorKindInternal
	}
}

// asFetchError attributes err to path unless it already carries a kind the
// caller can act on.
func asFetchError(path string, err error) error {
	var (
		upstream UpstreamError
		fetch    FetchError
	)
	if errors.As(err, &upstream) || errors.As(err, &fetch) {
		return err
	}
	return FetchError{Path: path, Err: err}
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
