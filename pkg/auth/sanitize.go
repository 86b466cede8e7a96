package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeName trims a display name, drops control characters and
// collapses runs of whitespace into a single space.
func SanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(name), " ")
}

// ValidateStringLength checks the rune length of value. A zero bound is not enforced.
func ValidateStringLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}
	return nil
}
