// backend/utils/timeutil.go
package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// digitsOnly drops every character that is not an ASCII digit.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseTimeToInt strips all non-digits from a free-text time and returns the remaining magnitude,
// so "04:28" becomes 428 and "24:15" becomes 2415. ok is false when no digits remain.
// A digit run too long for an int saturates to math.MaxInt, which still reads as past midnight.
func ParseTimeToInt(text string) (int, bool) {
	digits := digitsOnly(text)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeTime canonicalizes "H:M" text to zero-padded "HH:MM" with the hour taken modulo 24.
// The input must be exactly two colon-separated all-digit parts.
func NormalizeTime(text string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 || !isDigits(parts[0]) || !isDigits(parts[1]) {
		return "", false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h%24, m), true
}

// TimeKeyDigits reduces a time to its digits, left-padded to four, e.g. "9:05" -> "0905".
func TimeKeyDigits(text string) (string, bool) {
	digits := digitsOnly(text)
	if digits == "" {
		return "", false
	}
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	return digits, true
}

// ParseMinutes converts "HH:MM" to minutes since midnight.
func ParseMinutes(hhmm string) (int, bool) {
	h, m, found := strings.Cut(hhmm, ":")
	if !found {
		return 0, false
	}
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0, false
	}
	return hours*60 + minutes, true
}

// SplitGenre splits a description like "Drama: Series" on the first colon into primary and secondary genre.
func SplitGenre(text string) (primary, secondary string) {
	if text == "" {
		return "", ""
	}
	before, after, found := strings.Cut(text, ":")
	if !found {
		return strings.TrimSpace(before), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
