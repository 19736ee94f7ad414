// Package match implements name normalization, string similarity, and the
// parenthood matcher that classifies a receipt's recipient against the
// household's declared family members.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize returns the comparison key for a free-text name: lower-cased,
// diacritics stripped, internal whitespace collapsed, trimmed. The original
// text is always kept elsewhere for display; this form is only ever compared.
// Empty input normalizes to the empty string.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if out, _, err := transform.String(stripDiacritics, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeDisplay fixes casing and whitespace without stripping diacritics,
// so "  hadja  OUMOU bah " becomes "Hadja Oumou Bah". Used as the grouper's
// exact-bucket key and for canonical display names.
func NormalizeDisplay(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}
