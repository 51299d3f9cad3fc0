// Package slug builds URL-safe identifiers and display labels for locations and counters.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make turns a display name into a lowercase hyphenated slug. Accents are
// stripped ("Café Nord" -> "cafe-nord"); other non-alphanumerics collapse to '-'.
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}
	plain = cases.Lower(language.Und).String(plain)

	var b strings.Builder
	lastDash := true
	for _, r := range plain {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Prefix normalizes a counter prefix to upper case.
func Prefix(prefix string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(prefix))
}

// Title normalizes whitespace and title-cases a display name.
func Title(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(strings.Fields(name), " "))
}
