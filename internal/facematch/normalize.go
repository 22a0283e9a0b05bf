// Package facematch matches curator queries against person names.
package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName folds a name for comparison: no diacritics, lowercase,
// dashes as spaces, runs of whitespace collapsed.
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// Initials returns the first rune of every word of a normalized name.
func Initials(normalized string) string {
	var b strings.Builder
	for _, w := range strings.Fields(normalized) {
		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}
	return b.String()
}
