package parsing

import (
	"strings"
	"unicode"
)

// SanitizeFilename reduces a tag value to a filesystem-safe name
// component. Letters, digits, spaces, '_' and '-' are kept, every
// other rune is dropped, surrounding whitespace is trimmed, and the
// spaces that remain become underscores.
//
// The result may be empty ("???" sanitizes to ""); callers decide the
// fallback for that case.
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
