// Package normalize reduces freeform MAC address and phone text to the
// canonical forms stored by the record service.
package normalize

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MacLength      = 12
	MinPhoneLength = 6
	MaxPhoneLength = 20
)

var ErrInvalidMac = errors.New("invalid MAC. Use 12 hex digits (colon/dash optional)")

// MacDigits keeps only the hexadecimal digits of s, lowercased.
// The result is not guaranteed to be a complete address.
func MacDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
			b.WriteByte(c)
		case c >= 'A' && c <= 'F':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// Mac returns the canonical 12 lowercase hex character form of s.
// Any separator style is accepted, only the digit count matters.
func Mac(s string) (string, error) {
	n := MacDigits(s)
	if len(n) != MacLength {
		return "", ErrInvalidMac
	}
	return n, nil
}

// IsValidMac reports whether s normalizes to a complete MAC address.
func IsValidMac(s string) bool {
	_, err := Mac(s)
	return err == nil
}

// Phone trims s. Length is counted in characters, not bytes.
func Phone(s string) string {
	return strings.TrimSpace(s)
}

func IsValidPhone(s string) bool {
	n := utf8.RuneCountInString(Phone(s))
	return n >= MinPhoneLength && n <= MaxPhoneLength
}

func Name(s string) string {
	return strings.TrimSpace(s)
}
