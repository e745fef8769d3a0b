// Package errors defines the error taxonomy of the billing service.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput marks malformed item, charge or discount data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSequenceUnavailable means the counter could not be incremented.
	// The in-flight create must abort before anything is persisted.
	ErrSequenceUnavailable = errors.New("sequence unavailable")

	// ErrDuplicateNumber is raised by the persistence boundary when the
	// (tenant, number) uniqueness constraint rejects a document.
	ErrDuplicateNumber = errors.New("duplicate document number")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// SequenceUnavailable wraps a counter failure.
func SequenceUnavailable(err error, tenantID, prefix string) error {
	wrapped := errors.Wrapf(err, "allocate %q for tenant %s", prefix, tenantID)
	return errors.Mark(errors.WithHint(wrapped, "document numbering is temporarily unavailable, retry the request"), ErrSequenceUnavailable)
}

// DuplicateNumber wraps a uniqueness violation on the document number.
func DuplicateNumber(err error, number string) error {
	wrapped := errors.Wrapf(err, "document number %s", number)
	return errors.Mark(errors.WithHint(wrapped, "a document with the same number already exists"), ErrDuplicateNumber)
}

// Wrap annotates err with a message.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Hint returns the first user-facing hint attached to err, if any.
func Hint(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsSequenceUnavailable(err error) bool {
	return errors.Is(err, ErrSequenceUnavailable)
}

func IsDuplicateNumber(err error) bool {
	return errors.Is(err, ErrDuplicateNumber)
}
