package session

import (
	"errors"
	"fmt"
)

// Common errors returned by the pool.
var (
	// ErrAuthFailed is returned when the login flow for a category fails.
	// It is not retried at this layer; the caller decides what to do.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrPoolClosed is returned by Authenticate after the pool shut down.
	ErrPoolClosed = errors.New("session pool closed")
)

// NavigationError is an ordinary, retryable fetch failure: a transport
// error, a non-2xx status, a redirect back to the login page, or a page
// missing its wait condition.
type NavigationError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

// Error implements the error interface.
func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigate %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("navigate %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NavigationError) Unwrap() error {
	return e.Err
}
