// Package normalize canonicalizes raw phone numbers and product titles into
// comparable join keys. All functions are pure.
package normalize

import "strings"

// phoneKeyLength is the number of trailing digits that form a phone key.
// Keeping only the last 10 digits makes keys comparable regardless of
// country-code prefixes or formatting.
const phoneKeyLength = 10

// Phone strips every non-digit character from raw and returns the last 10
// digits. Inputs with fewer than 10 digits return the full digit string;
// such short keys simply fail to match in the linker.
func Phone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > phoneKeyLength {
		return digits[len(digits)-phoneKeyLength:]
	}
	return digits
}

// Title trims surrounding whitespace and lower-cases raw. Used for cost-basis
// lookup and product grouping.
func Title(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
