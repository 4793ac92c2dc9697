package auth

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var emailCaser = cases.Lower(language.Und)

// NormalizeEmail trims and lowercases an email address. Stored emails are always in this form.
func NormalizeEmail(email string) string {
	return emailCaser.String(strings.TrimSpace(email))
}

// NormalizeName NFC-normalizes a display name and collapses runs of whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SearchKey folds a name for case- and accent-insensitive search.
func SearchKey(s string) string {
	return strings.ToLower(RemoveDiacritics(NormalizeName(s)))
}
