package recommend

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

var stopWords = map[string]bool{
	"a": true, "about": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "can": true, "do": true, "for": true,
	"from": true, "help": true, "how": true, "i": true, "in": true, "is": true,
	"it": true, "me": true, "my": true, "need": true, "new": true, "of": true,
	"on": true, "or": true, "our": true, "please": true, "should": true,
	"some": true, "that": true, "the": true, "this": true, "to": true,
	"us": true, "want": true, "we": true, "what": true, "with": true,
	"you": true, "your": true,
}

// Tokenize lower-cases text and splits it into runs of letters and digits
// in any script. Single-rune tokens and stop words are dropped, simple
// plurals folded, and the distinct keywords returned sorted.
func Tokenize(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !isWordRune(r) })
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if stopWords[tok] || utf8.RuneCountInString(tok) < 2 {
			continue
		}
		out = append(out, fold(tok))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// keepS lists words whose trailing s is not a plural.
var keepS = map[string]bool{
	"always": true, "canvas": true, "iaas": true, "news": true,
	"paas": true, "saas": true, "series": true, "species": true,
}

// fold reduces common English plurals to their singular form.
func fold(tok string) string {
	switch {
	case keepS[tok]:
		return tok
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us"):
		return tok[:len(tok)-1]
	default:
		return tok
	}
}

// tokenSet is a set of keywords.
type tokenSet map[string]struct{}

func newTokenSet(texts ...string) tokenSet {
	set := make(tokenSet)
	for _, t := range texts {
		for _, tok := range Tokenize(t) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// intersect returns the keywords of the sorted slice present in the set.
func (s tokenSet) intersect(keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if _, ok := s[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
