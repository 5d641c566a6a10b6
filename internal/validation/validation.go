package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds organization, team and user display names
	MaxNameLength = 200

	// MaxEmailLength is the RFC 5321 path limit
	MaxEmailLength = 320
)

var (
	// ErrNameRequired is returned when a name is empty after trimming
	ErrNameRequired = errors.New("name is required")

	// ErrNameTooLong is returned when a name exceeds MaxNameLength runes
	ErrNameTooLong = errors.New("name must be at most 200 characters")

	// ErrEmailRequired is returned when an email is empty after trimming
	ErrEmailRequired = errors.New("email is required")

	// ErrEmailTooLong is returned when an email exceeds MaxEmailLength bytes
	ErrEmailTooLong = errors.New("email is too long")

	// ErrInvalidEmail is returned when an email is not a bare address
	ErrInvalidEmail = errors.New("invalid email address")
)

// NormalizeName trims a display name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// NormalizeEmail trims and lowercases an email address and rejects anything
// that is not a bare address ("Name <a@b>" forms are refused).
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > MaxEmailLength {
		return "", ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
