// Package normalize canonicalizes free-text titles into comparison keys used
// for duplicate detection.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// urlPattern matches scheme://… and www.… substrings, which carry no
// comparison value and differ between copies of the same title.
var urlPattern = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.-]*://\S+|\bwww\.\S+`)

// marksAndFormat strips combining diacritical marks left behind by NFD
// decomposition, plus zero-width and other format control characters.
var marksAndFormat = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.In(unicode.Cf)),
)

// Key canonicalizes a title for comparison. It is total: any input yields a
// key, and an empty or whitespace-only title yields "" (which callers must
// never treat as a duplicate key).
func Key(title string) string {
	s, _, err := transform.String(marksAndFormat, title)
	if err != nil {
		s = title
	}
	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
