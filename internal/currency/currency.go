// Package currency converts between the kopeck integers used everywhere
// inside the engine and the ruble decimal strings shown at the API
// boundary. Nothing outside this package does money formatting.
package currency

import (
	"fmt"
	"strings"
)

// KopecksToRubles formats a kopeck amount as a ruble string with exactly
// two fraction digits, e.g. 1020 -> "10.20".
func KopecksToRubles(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	return fmt.Sprintf("%s%d.%02d", sign, kopecks/100, kopecks%100)
}

// RublesToKopecks parses a ruble decimal string like "10.20" into
// kopecks. The string is read digit by digit and rounded half away from
// zero on the third fraction digit; no float is ever involved, so values
// ending in .xx5 round predictably.
func RublesToKopecks(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		negative = true
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	var kopecks int64
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		kopecks = kopecks*10 + int64(c-'0')
	}
	kopecks *= 100

	for i, c := range fracPart {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		switch i {
		case 0:
			kopecks += int64(c-'0') * 10
		case 1:
			kopecks += int64(c - '0')
		case 2:
			if c >= '5' {
				kopecks++
			}
		}
		// Digits past the third cannot change the nearest kopeck.
	}

	if negative {
		kopecks = -kopecks
	}
	return kopecks, nil
}
