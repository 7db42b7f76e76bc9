package utils

import (
	"errors"
	"strings"
)

// Error kinds returned by the persistence gateway. Callers match them with
// errors.Is; the wrapped text carries the detail.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("todo not found")
	ErrStorage    = errors.New("storage failure")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// NewValidationError returns an ErrValidation whose message is safe to show to clients.
func NewValidationError(msg string) error {
	return &validationError{msg: msg}
}

// ValidationMessage returns the client-facing text of a validation error, or
// an empty string when err is not one.
func ValidationMessage(err error) string {
	var ve *validationError
	if errors.As(err, &ve) {
		return ve.msg
	}
	if errors.Is(err, ErrValidation) {
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
	}
	return ""
}
