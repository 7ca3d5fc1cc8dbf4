package util

import (
	"strings"
	"unicode"
)

// StoredText prepares an entity name or range for a Postgres text column,
// which rejects NUL bytes and invalid UTF-8. Line breaks and tabs become
// spaces, other control characters are dropped. Subscripts such as the
// one in "NO₂" are kept.
func StoredText(value string) string {
	if value == "" {
		return value
	}
	value = strings.ToValidUTF8(value, "")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, value)
}
