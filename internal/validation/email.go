package validation

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidateEmail validates email format and length (RFC 5322 via net/mail)
func ValidateEmail(email string) error {
	// RFC 5321: total max 254 with @
	if len(email) > 254 {
		return errors.New("email address is too long (max 254 characters)")
	}

	if email == "" {
		return errors.New("email address is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address format")
	}

	return nil
}

// NormalizeEmail lowercases and trims an address, then validates it.
// Stored emails are always in this form.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	err := ValidateEmail(normalized)
	if err != nil {
		return "", err
	}
	return normalized, nil
}
