package quiz

import (
	"errors"
	"strings"

	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

var (
	ErrNotFound = store.ErrNotFound
	// ErrConflict is returned when registering an email that is already taken.
	ErrConflict = store.ErrConflict
	// ErrUnauthorized means the caller lacks the role or ownership for the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Authenticate for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError lists the request fields that were absent or malformed.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "Invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func invalid(fields ...string) error {
	return &ValidationError{Invalid: fields}
}

// RequireAdmin fails unless p is an administrator.
func RequireAdmin(p data.Principal) error {
	if !p.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// RequireSelfOrAdmin fails unless p is an administrator or the user userID.
func RequireSelfOrAdmin(p data.Principal, userID int64) error {
	if p.IsAdmin() || p.UserID == userID {
		return nil
	}
	return ErrUnauthorized
}
