package validator

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies the exact validation failure so call sites can branch on
// it without inspecting messages.
type Code string

const (
	CodeInvalidEmail         Code = "invalid_email"
	CodeUsernameTooShort     Code = "username_too_short"
	CodeUsernameTooLong      Code = "username_too_long"
	CodeUsernameInvalidChars Code = "username_invalid_chars"
	CodePasswordTooShort     Code = "password_too_short"
	CodePasswordNoUpper      Code = "password_missing_uppercase"
	CodePasswordNoLower      Code = "password_missing_lowercase"
	CodePasswordNoDigit      Code = "password_missing_digit"
	CodePasswordNoSpecial    Code = "password_missing_special"
	CodePasswordMismatch     Code = "password_mismatch"
	CodeInvalidPhone         Code = "invalid_phone"
	CodeTermsNotAccepted     Code = "terms_not_accepted"
)

// ValidationError is a single field-scoped validation failure.
type ValidationError struct {
	Field   string
	Code    Code
	Message string
}

// ValidationErrors collects all failures from one Apply call.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether any failure was recorded for the given field.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// HasCode reports whether any failure carries the given code.
func (ve ValidationErrors) HasCode(code Code) bool {
	for _, err := range ve {
		if err.Code == code {
			return true
		}
	}
	return false
}

// Get returns the messages recorded for the given field.
func (ve ValidationErrors) Get(field string) []string {
	var messages []string
	for _, err := range ve {
		if err.Field == field {
			messages = append(messages, err.Message)
		}
	}
	return messages
}

// Rule is a single validation check paired with the error reported when the
// check fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply evaluates every rule and returns the collected failures, or nil when
// all rules pass. All rules run so the caller can surface every problem at
// once instead of one per submit.
func Apply(rules ...Rule) error {
	var failed ValidationErrors

	for _, rule := range rules {
		if !rule.Check() {
			failed = append(failed, rule.Error)
		}
	}

	if len(failed) == 0 {
		return nil
	}
	return failed
}

// Extract returns the ValidationErrors wrapped in err, or nil when err does
// not originate from this package.
func Extract(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// IsValidationError reports whether err originates from this package.
func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
