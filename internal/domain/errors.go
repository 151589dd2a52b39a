// Package domain holds the error taxonomy and caller identity shared by the
// services and the HTTP layer.
package domain

import (
	"errors"
	"fmt"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrLastAdmin          = errors.New("the last admin cannot be removed or demoted")
)

// ValidationError is bad or conflicting input. Message is shown to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps an unexpected failure of the storage backend
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure during " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err unless it already belongs to the taxonomy
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// FromStorage maps a repository error onto the taxonomy. Callers that can
// name the conflicting field check uniqueness themselves before writing.
func FromStorage(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsDomain(err):
		return err
	case errors.Is(err, interfaces.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, interfaces.ErrUniqueConstraint):
		return Invalid("", "An item with the same value already exists.")
	case errors.Is(err, interfaces.ErrForeignKeyConstraint):
		return Invalid("", "The item is still referenced by other records.")
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain reports whether err is one of the expected, user-facing failures
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotFound, ErrPermissionDenied, ErrUnauthenticated,
		ErrInvalidCredentials, ErrInvalidToken, ErrLastAdmin,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UserMessage returns the text shown for err at the request boundary.
// Storage failures collapse into a generic notice.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrNotFound):
		return "The requested item was not found."
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrUnauthenticated):
		return "Please log in to access this page."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrInvalidToken):
		return "Invalid or expired reset link."
	case errors.Is(err, ErrLastAdmin):
		return "Cannot delete or demote the last admin user."
	}
	return "Something went wrong. Please try again."
}
