package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const (
	// UsernameMinLength and UsernameMaxLength bound the immutable profile
	// username.
	UsernameMinLength = 3
	UsernameMaxLength = 30

	// PasswordMinLength is the minimum accepted password length. The
	// authority enforces its own minimum independently; this one exists so
	// weak input never leaves the browser.
	PasswordMinLength = 8

	// PhoneNationalLength is the digit count of a normalized phone number.
	PhoneNationalLength = 10
)

var (
	usernameRegex    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)
	phoneDigitsRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ValidEmail validates a local@domain.tld shape. The value is expected to be
// normalized (trimmed, lowercased) before validation.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" || value != strings.TrimSpace(value) {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}

			parts := strings.Split(value, "@")
			if len(parts) != 2 || parts[0] == "" {
				return false
			}

			domain := parts[1]
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for _, part := range strings.Split(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Code:    CodeInvalidEmail,
			Message: "must be a valid email address",
		},
	}
}

// UsernameMinLen validates the lower length bound of a username.
func UsernameMinLen(field, value string) Rule {
	return Rule{
		Check: func() bool { return len(value) >= UsernameMinLength },
		Error: ValidationError{
			Field:   field,
			Code:    CodeUsernameTooShort,
			Message: fmt.Sprintf("must be at least %d characters", UsernameMinLength),
		},
	}
}

// UsernameMaxLen validates the upper length bound of a username.
func UsernameMaxLen(field, value string) Rule {
	return Rule{
		Check: func() bool { return len(value) <= UsernameMaxLength },
		Error: ValidationError{
			Field:   field,
			Code:    CodeUsernameTooLong,
			Message: fmt.Sprintf("must be at most %d characters", UsernameMaxLength),
		},
	}
}

// UsernameCharset restricts usernames to [a-zA-Z0-9_-]. Empty input is left
// to the length rule so only one code fires per problem.
func UsernameCharset(field, value string) Rule {
	return Rule{
		Check: func() bool { return value == "" || usernameRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Code:    CodeUsernameInvalidChars,
			Message: "may only contain letters, digits, underscores and hyphens",
		},
	}
}

// UsernameRules bundles all username checks for a single Apply call.
func UsernameRules(field, value string) []Rule {
	return []Rule{
		UsernameMinLen(field, value),
		UsernameMaxLen(field, value),
		UsernameCharset(field, value),
	}
}

// PasswordMinLen validates the minimum password length.
func PasswordMinLen(field, value string) Rule {
	return Rule{
		Check: func() bool { return len(value) >= PasswordMinLength },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordTooShort,
			Message: fmt.Sprintf("must be at least %d characters", PasswordMinLength),
		},
	}
}

// PasswordUppercase requires at least one uppercase letter.
func PasswordUppercase(field, value string) Rule {
	return Rule{
		Check: func() bool { return uppercaseRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordNoUpper,
			Message: "must contain at least one uppercase letter",
		},
	}
}

// PasswordLowercase requires at least one lowercase letter.
func PasswordLowercase(field, value string) Rule {
	return Rule{
		Check: func() bool { return lowercaseRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordNoLower,
			Message: "must contain at least one lowercase letter",
		},
	}
}

// PasswordDigit requires at least one digit.
func PasswordDigit(field, value string) Rule {
	return Rule{
		Check: func() bool { return digitRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordNoDigit,
			Message: "must contain at least one digit",
		},
	}
}

// PasswordSpecialChar requires at least one punctuation or symbol character.
func PasswordSpecialChar(field, value string) Rule {
	return Rule{
		Check: func() bool { return specialCharRegex.MatchString(value) },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordNoSpecial,
			Message: "must contain at least one special character",
		},
	}
}

// PasswordStrengthRules bundles the full strength policy: minimum length plus
// one character from each of the four classes. Every unmet requirement is
// reported so the form can show them all at once.
func PasswordStrengthRules(field, value string) []Rule {
	return []Rule{
		PasswordMinLen(field, value),
		PasswordUppercase(field, value),
		PasswordLowercase(field, value),
		PasswordDigit(field, value),
		PasswordSpecialChar(field, value),
	}
}

// PasswordsMatch validates the confirm-password field.
func PasswordsMatch(field, password, confirmation string) Rule {
	return Rule{
		Check: func() bool { return password == confirmation },
		Error: ValidationError{
			Field:   field,
			Code:    CodePasswordMismatch,
			Message: "passwords do not match",
		},
	}
}

// ValidPhone validates an optional, normalized phone number: empty is
// accepted, otherwise exactly 10 digits (the trunk prefix is stripped during
// normalization).
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" {
				return true
			}
			return len(value) == PhoneNationalLength && phoneDigitsRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Code:    CodeInvalidPhone,
			Message: "must be a 10-digit phone number",
		},
	}
}

// TermsAccepted validates the terms-of-service checkbox.
func TermsAccepted(field string, accepted bool) Rule {
	return Rule{
		Check: func() bool { return accepted },
		Error: ValidationError{
			Field:   field,
			Code:    CodeTermsNotAccepted,
			Message: "terms of service must be accepted",
		},
	}
}
