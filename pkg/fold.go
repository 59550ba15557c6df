package pkg

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes maps typographic apostrophes to the ASCII one.
var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u02bc", "'")

// Fold lowercases s, strips diacritics, unifies apostrophes and trims
// surrounding whitespace, so that "Durée", "duree" and "DUREE" compare equal
// and "d’information" matches "d'information".
func Fold(s string) string {
	s = apostrophes.Replace(s)
	// transform.Chain keeps internal state and is not safe for reuse across
	// goroutines, so a fresh chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
