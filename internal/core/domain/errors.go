package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials means the backend rejected the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedRequest means the request never reached authentication
	// (client-side validation or a backend 400).
	ErrMalformedRequest = errors.New("malformed request")
	// ErrAccountDisabled means the account exists but is inactive or suspended.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrTokenInvalid means the backend no longer accepts the bearer token.
	ErrTokenInvalid = errors.New("token invalid or expired")
	// ErrServer means the backend answered with a 5xx.
	ErrServer = errors.New("server error")
	// ErrUnreachable means the request never got an HTTP answer at all.
	ErrUnreachable = errors.New("backend unreachable")
)

// APIError carries a backend rejection together with the HTTP status that
// produced it, wrapped around one of the sentinel errors above so call sites
// can classify with errors.Is. Status 0 means the failure happened below
// HTTP (connection refused, timeout, DNS).
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Err, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
