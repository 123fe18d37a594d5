package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes to NFD and drops combining marks, so that
// "Compañía" and "Compania" compare equal.
var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold returns the normalized comparison form of s: lowercased, diacritics
// stripped, punctuation collapsed to single spaces. This is the key used for
// place variants and cross-source title matching.
func Fold(s string) string {
	out, _, err := transform.String(stripDiacritics, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		out = strings.ToLower(strings.TrimSpace(s))
	}
	var b strings.Builder
	b.Grow(len(out))
	lastSpace := false
	for _, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace && b.Len() > 0 {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// CollapseSpaces trims s and squeezes internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
