package repository

import (
	"errors"
	"fmt"
)

var (
	ErrConflict    = errors.New("document with the requested id already exists")
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("backend unavailable")
)

// Unavailable marks err as a transient backend failure.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

type AuthReason string

const (
	ReasonEmailExists       AuthReason = "email-already-in-use"
	ReasonWeakPassword      AuthReason = "weak-password"
	ReasonInvalidEmail      AuthReason = "invalid-email"
	ReasonInvalidCredential AuthReason = "invalid-credential"
	ReasonUserNotFound      AuthReason = "user-not-found"
	ReasonTooManyRequests   AuthReason = "too-many-requests"
	ReasonInvalidCode       AuthReason = "invalid-action-code"
	ReasonSessionExpired    AuthReason = "session-expired"
	ReasonNetwork           AuthReason = "network-request-failed"
)

type AuthError struct {
	Reason AuthReason
	Err    error
}

func NewAuthError(reason AuthReason, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth/" + string(e.Reason) + ": " + e.Err.Error()
	}
	return "auth/" + string(e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// AuthReasonOf extracts the reason of an AuthError anywhere in err's chain.
func AuthReasonOf(err error) (AuthReason, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return "", false
}
