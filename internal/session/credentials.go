package session

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

const passwordSpecials = "@$!%*?&"

// Field validation messages, shown inline next to the offending field.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Invalid email address"
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "Password must be at least 8 characters"
	MsgPasswordWeak     = "Password must contain at least one uppercase letter, one lowercase letter, one number and one special character"
)

// FieldErrors maps a form field name ("email", "password") to its message.
type FieldErrors map[string]string

// OK reports whether no field failed validation.
func (f FieldErrors) OK() bool { return len(f) == 0 }

// ValidateCredentials checks the login form before any request is sent.
func ValidateCredentials(email, password string) FieldErrors {
	errs := FieldErrors{}

	switch {
	case strings.TrimSpace(email) == "":
		errs["email"] = MsgEmailRequired
	case !emailPattern.MatchString(email):
		errs["email"] = MsgEmailInvalid
	}

	switch {
	case password == "":
		errs["password"] = MsgPasswordRequired
	case len(password) < 8:
		errs["password"] = MsgPasswordShort
	case !strongPassword(password):
		errs["password"] = MsgPasswordWeak
	}

	return errs
}

// strongPassword requires one of each character class and allows nothing
// outside letters, digits and passwordSpecials.
func strongPassword(p string) bool {
	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}
