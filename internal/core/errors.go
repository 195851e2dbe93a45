package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrOperationFailed is surfaced when a store mutation cannot be
	// confirmed by its remote collaborator. The local tree stays unchanged.
	ErrOperationFailed = errors.New("operation failed")
)

// ValidationError reports a missing or malformed input field. It is raised
// before any network or storage call is attempted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

// ConflictError reports a uniqueness violation at registration. Field names
// the first conflicting attribute (username, email or phone).
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}
