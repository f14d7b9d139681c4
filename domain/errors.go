// server/domain/errors.go
package domain

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError is returned for rejected client input. Its message is
// safe to send back to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// NewID returns a fresh identifier in canonical form.
func NewID() string {
	return uuid.NewString()
}

// ParseID reports whether s is a canonical identifier and returns its
// normalized (lower case) spelling. Braced, URN and unhyphenated forms
// are rejected.
func ParseID(s string) (string, bool) {
	if len(s) != 36 {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
