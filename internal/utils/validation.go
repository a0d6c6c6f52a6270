// Package utils provides common validation helpers and ambient plumbing
// for the RunProof platform.
package utils

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for submission field validation.
var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{5,19}$`)
	durationPattern = regexp.MustCompile(`^[0-9]{2}:[0-9]{2}:[0-9]{2}$`)
	spacePattern    = regexp.MustCompile(`\s+`)
)

// IsValidEmail reports whether s looks like a deliverable address.
// Intentionally loose: the ledger, not the regex, is the source of truth
// for who is registered.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// IsValidPhone reports whether s looks like a phone number.
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// IsCanonicalDuration reports whether s is a fixed-width HH:MM:SS string.
func IsCanonicalDuration(s string) bool {
	return durationPattern.MatchString(s)
}

// NormalizeSpaces collapses runs of whitespace into single spaces and
// trims the ends.
func NormalizeSpaces(s string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeEmail lower-cases and trims an address for ledger comparisons.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
