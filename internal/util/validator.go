package util

import "regexp"

// permissive on purpose: exactly one @ with a dot somewhere after it
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MinPasswordLength applies at signup only; login re-checks nothing but presence.
const MinPasswordLength = 8

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// StrongEnoughPassword reports whether a signup password meets the minimum length.
func StrongEnoughPassword(s string) bool {
	return len(s) >= MinPasswordLength
}
