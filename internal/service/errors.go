package service

import (
	"errors"
	"strings"

	"github.com/factorytrack/factory-backend/internal/repository"
)

// Service errors. Handlers map these onto HTTP status codes.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrGrantNotFound      = errors.New("user does not hold this role")
	ErrRoleNameTaken      = errors.New("role name already exists")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrPermissionExists   = errors.New("permission already exists")
	ErrProtectedRole      = errors.New("system roles cannot be deleted, renamed or deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionInvalid     = errors.New("session expired or revoked")
)

// ValidationError is a request that is well-formed JSON but semantically
// invalid. Fields maps field names to messages; Details carries extra
// machine-readable data.
type ValidationError struct {
	Message string
	Fields  map[string]string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for f, m := range e.Fields {
		parts = append(parts, f+": "+m)
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Message: message,
		Fields:  map[string]string{field: message},
	}
}

// mapNotFound converts a repository miss into the given service error.
func mapNotFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
