package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is wrapped by a TransportError for a 404 response
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is wrapped when the circuit breaker refuses a call
	ErrUnavailable = errors.New("claims service unavailable, try again shortly")
)

// TransportError is a request to the claims service that failed before a
// body could be interpreted: non-2xx status, network failure, or an
// undecodable body.
type TransportError struct {
	Op         string // "load claims", "load claim 4", "verify claim 4"
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the claims service
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// statusError builds the error for a non-2xx response
func statusError(op, url string, code int) *TransportError {
	e := &TransportError{Op: op, URL: url, StatusCode: code}
	if code == http.StatusNotFound {
		e.Err = ErrNotFound
	}
	return e
}

// countsAsFailure decides which errors trip the circuit breaker.
// Client-side statuses (4xx) mean the service is up.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
		return false
	}
	return true
}
