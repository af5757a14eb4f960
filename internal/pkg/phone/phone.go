// Package phone holds the phone-number conventions shared by the
// authentication flow: normalization, client-facing masking, and the
// synthetic placeholder email assigned to phone-only accounts.
package phone

import (
	"fmt"
	"strings"
)

// Normalize strips formatting characters from a phone number. Digits and a
// single leading '+' are kept; everything else (spaces, dashes, parentheses,
// dots) is dropped.
func Normalize(number string) string {
	var b strings.Builder
	for i, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mask hides the middle of a phone number for display: first two and last two
// characters stay, the rest become '*'. Numbers of four characters or fewer
// are masked entirely.
func Mask(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return number[:2] + strings.Repeat("*", len(number)-4) + number[len(number)-2:]
}

// SyntheticEmail builds the placeholder address stored for accounts that
// registered with a phone number only, e.g. "03001234567@phone.homehive.app".
func SyntheticEmail(number, domain string) string {
	return fmt.Sprintf("%s@phone.%s", Normalize(number), domain)
}

// IsSyntheticEmail reports whether email is a placeholder generated by
// SyntheticEmail rather than a real, deliverable address.
func IsSyntheticEmail(email, domain string) bool {
	return strings.HasSuffix(email, "@phone."+domain)
}
