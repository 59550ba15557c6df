package core

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode"

	"prescription-chatbot/pkg"
)

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// Normalizer maps model-emitted labels onto canonical fields and decides
// whether a value is an absence phrase.  The lookup table can be swapped at
// runtime (see WatchLexicon); lookups never block.
type Normalizer struct {
	table atomic.Pointer[normTable]
}

type normTable struct {
	keys    map[string]pkg.Field
	heads   map[string]pkg.Field
	absence pkg.AbsenceRules
}

// NewNormalizer builds a normalizer from lex.
func NewNormalizer(lex Lexicon) *Normalizer {
	n := &Normalizer{}
	n.Load(lex)
	return n
}

// Load replaces the lookup table.  Every field always matches its own JSON
// key and display label, whatever the lexicon says.
func (n *Normalizer) Load(lex Lexicon) {
	t := &normTable{keys: map[string]pkg.Field{}, heads: map[string]pkg.Field{}, absence: AbsenceRulesFor(lex)}
	for _, f := range pkg.Fields {
		t.keys[cleanLabel(string(f))] = f
		t.keys[cleanLabel(f.DisplayLabel())] = f
		t.keys[cleanLabel(f.Label())] = f
	}
	for f, synonyms := range lex.Fields {
		for _, s := range synonyms {
			if k := cleanLabel(s); k != "" {
				t.keys[k] = f
			}
		}
	}
	for _, w := range lex.HeadWords {
		if f, ok := t.keys[cleanLabel(w)]; ok {
			t.heads[cleanLabel(w)] = f
		}
	}
	n.table.Store(t)
}

// NormalizeKey maps a free-text label to its canonical field.  It tries the
// whole label, then the label without parenthetical remarks, then its first
// word when that word is a head word of the lexicon.  Unknown labels report
// false.
func (n *Normalizer) NormalizeKey(label string) (pkg.Field, bool) {
	t := n.table.Load()
	key := cleanLabel(label)
	if key == "" {
		return "", false
	}
	if f, ok := t.keys[key]; ok {
		return f, true
	}
	if stripped := strings.TrimSpace(parenthetical.ReplaceAllString(key, "")); stripped != key {
		if f, ok := t.keys[stripped]; ok {
			return f, true
		}
	}
	if words := strings.FieldsFunc(key, func(r rune) bool { return !unicode.IsLetter(r) }); len(words) > 1 {
		if f, ok := t.heads[words[0]]; ok {
			return f, true
		}
	}
	return "", false
}

// IsAbsent reports whether v says "no information".  It applies the same
// rules to every field.
func (n *Normalizer) IsAbsent(v string) bool {
	return n.table.Load().absence.Matches(v)
}

// cleanLabel folds a label and strips list bullets, numbering and markdown
// emphasis: "**1. Durée**" becomes "duree".
func cleanLabel(s string) string {
	s = pkg.Fold(s)
	s = strings.TrimLeft(s, "-*•#>+0123456789.) \t")
	s = strings.Trim(s, "*_`\"' \t")
	return strings.Join(strings.Fields(s), " ")
}

// cleanValue trims whitespace, markdown emphasis and wrapping quotes.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"') {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
