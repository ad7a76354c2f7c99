package parse

import (
	"errors"
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

var (
	// ErrMissingName is returned when the name is empty after trimming.
	ErrMissingName = errors.New("name is required")
	// ErrMissingEmail is returned when the email is empty after trimming.
	ErrMissingEmail = errors.New("email is required")
)

// Contact holds the cleaned-up identity a booking or waiting list entry is made for.
type Contact struct {
	Name  string
	Email string
}

// ParseContact trims both fields, collapses runs of whitespace inside the
// name and lower-cases the email. Both fields are required; the email is not
// validated further.
func ParseContact(name, email string) (Contact, error) {
	n := spaceRe.ReplaceAllString(strings.TrimSpace(name), " ")
	e := NormalizeEmail(email)

	if n == "" {
		return Contact{}, ErrMissingName
	}
	if e == "" {
		return Contact{}, ErrMissingEmail
	}
	return Contact{Name: n, Email: e}, nil
}

// NormalizeEmail is the form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
