package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinPasswordLength = 6
	// bcrypt refuses anything longer
	MaxPasswordLength = 72
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPassword checks password length. The upper bound is in bytes.
func IsValidPassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 6 characters"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password must be at most 72 bytes"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
