package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 100

// ValidateName validates a patient's display name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return errors.New("name is too long (max 100 characters)")
	}

	return nil
}
