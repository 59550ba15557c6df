package pkg

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// AbsenceRules decides whether a candidate value actually says "no
// information". Prefixes and Markers are compared against the folded value
// (see Fold), so they are written lowercase and without accents.
type AbsenceRules struct {
	// Prefixes mark a value as absent when it starts with one of them on a
	// word boundary ("aucun" matches "aucun traitement" but "na" never
	// matches "naproxene").
	Prefixes []string `yaml:"prefixes"`
	// Markers are apology/explanation words. They only count for values
	// longer than MaxLength runes.
	Markers []string `yaml:"markers"`
	// MaxLength is the rune length above which Markers are considered.
	MaxLength int `yaml:"max_length"`
}

// DefaultAbsenceRules is the built-in absence lexicon. Record setters use it
// directly; the extraction normalizer may extend it.
var DefaultAbsenceRules = AbsenceRules{
	Prefixes: []string{
		"none", "nothing", "aucun", "aucune", "rien", "neant",
		"absent", "absente", "absents",
		"n/a", "n.a", "na", "nc", "n/c",
		"not specified", "not provided", "not mentioned", "not given", "not available", "not stated",
		"pas specifie", "pas specifiee", "pas precise", "pas mentionne", "pas indique", "pas fourni",
		"non specifie", "non specifiee", "non precise", "non precisee", "non mentionne",
		"non renseigne", "non fourni", "non indique", "non communique", "non disponible",
		"unknown", "inconnu", "inconnue", "indetermine",
		"null", "nil", "undefined", "empty", "vide",
		"[]", "{}", "()",
	},
	Markers: []string{
		"sorry", "apologize", "apologies", "as an ai", "i cannot", "i can't", "unable to",
		"there is no", "does not mention", "doesn't mention", "not mentioned in",
		"desole", "desolee", "je suis desole", "excuse", "en tant qu", "je ne peux",
		"impossible de", "il n'y a pas", "le texte ne", "ne mentionne pas", "aucune information",
	},
	MaxLength: 200,
}

// IsAbsent reports whether v carries no usable value under the default rules.
func IsAbsent(v string) bool { return DefaultAbsenceRules.Matches(v) }

// Matches reports whether v should be treated as "not provided". It is pure
// and independent of the field the value belongs to.
func (r AbsenceRules) Matches(v string) bool {
	folded := Fold(v)
	if folded == "" {
		return true
	}
	if onlyPunctuation(folded) || wrapped(folded) {
		return true
	}
	text := unhyphen(folded)
	for _, p := range r.Prefixes {
		if hasPhrasePrefix(text, unhyphen(p)) {
			return true
		}
	}
	if r.MaxLength > 0 && utf8.RuneCountInString(folded) > r.MaxLength {
		for _, m := range r.Markers {
			if strings.Contains(text, unhyphen(m)) {
				return true
			}
		}
	}
	return false
}

// Merge returns a copy of r extended with the phrases of other. A positive
// other.MaxLength replaces r.MaxLength.
func (r AbsenceRules) Merge(other AbsenceRules) AbsenceRules {
	out := AbsenceRules{
		Prefixes:  append(append([]string(nil), r.Prefixes...), foldAll(other.Prefixes)...),
		Markers:   append(append([]string(nil), r.Markers...), foldAll(other.Markers)...),
		MaxLength: r.MaxLength,
	}
	if other.MaxLength > 0 {
		out.MaxLength = other.MaxLength
	}
	return out
}

// unhyphen turns hyphens and underscores into single spaces so that
// "non-specifie" and "non_specifie" read as "non specifie".
func unhyphen(s string) string {
	if !strings.ContainsAny(s, "-_") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	}), " ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func hasPhrasePrefix(v, phrase string) bool {
	if !strings.HasPrefix(v, phrase) {
		return false
	}
	if len(v) == len(phrase) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(v[len(phrase):])
	last, _ := utf8.DecodeLastRuneInString(phrase)
	if !isWordRune(last) {
		return true
	}
	return !isWordRune(next)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func onlyPunctuation(v string) bool {
	for _, r := range v {
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// wrapped catches meta-commentary such as "(non precise dans le texte)" or
// template echoes such as "[nom du patient]".
func wrapped(v string) bool {
	if len(v) < 2 {
		return false
	}
	open, close := v[0], v[len(v)-1]
	if !((open == '(' && close == ')') || (open == '[' && close == ']')) {
		return false
	}
	depth := 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 && i != len(v)-1 {
				// "(a) et (b)" closes early, so it is not a single wrapper
				return false
			}
		}
	}
	return depth == 0
}
