package textnorm

import (
	"strings"
	"unicode"
)

// Normalize collapses whitespace runs to a single space, trims the ends and drops
// every rune that is neither a word character nor whitespace. Whitespace is
// collapsed again after stripping so the result is a fixed point of Normalize.
func Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	stripped := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, collapsed)
	return strings.Join(strings.Fields(stripped), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.IsMark(r) ||
		unicode.Is(unicode.Pc, r)
}
