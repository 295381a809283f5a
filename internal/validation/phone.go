package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const maxPhoneLength = 32

var errPhoneTooLong = errors.New("phone number is too long (max 32 characters)")

// ValidatePhoneLength only caps the length. Patients may enter anything else
// (extensions, vanity numbers, short codes).
func ValidatePhoneLength(phone string) error {
	if utf8.RuneCountInString(phone) > maxPhoneLength {
		return errPhoneTooLong
	}
	return nil
}

// ValidatePhone accepts free-form phone numbers: digits plus common separators.
// Used for operator-entered numbers.
func ValidatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)

	if len(trimmed) > maxPhoneLength {
		return errPhoneTooLong
	}

	digits := 0
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-(). ", r):
		default:
			return errors.New("phone number may only contain digits, spaces and + - ( ) .")
		}
	}

	if digits < 5 {
		return errors.New("phone number is too short")
	}

	return nil
}
