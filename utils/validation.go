package utils

import (
	"strings"
)

const (
	MsgTitleRequired = "Title is required"
	MsgTitleEmpty    = "Title cannot be empty"
)

// ValidateTitle checks the only business rule on a todo: a title that is not
// blank once trimmed. Length limits are left to the column type.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError(MsgTitleRequired)
	}
	return nil
}

// ValidateTitleUpdate is ValidateTitle with the message used when a title is
// replaced rather than created.
func ValidateTitleUpdate(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewValidationError(MsgTitleEmpty)
	}
	return nil
}
