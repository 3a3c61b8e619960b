package topic

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are dropped before comparison: articles, prepositions and the
// generic framing words people put around a subject name
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "and": {}, "with": {}, "about": {}, "into": {}, "at": {}, "by": {},
	"basics": {}, "basic": {}, "introduction": {}, "intro": {}, "fundamentals": {}, "overview": {},
	"beginner": {}, "beginners": {}, "learn": {}, "learning": {},
	"programming": {}, "language": {}, "course": {}, "class": {}, "lessons": {},
}

// Tokens splits CamelCase words, lower-cases name, strips punctuation, drops
// stop words and sorts the remaining words. A name made only of stop words
// keeps its words.
func Tokens(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, splitCamel(name))

	all := strings.Fields(cleaned)
	kept := make([]string, 0, len(all))
	for _, w := range all {
		if _, stop := stopWords[w]; !stop {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		kept = all
	}

	sort.Strings(kept)
	return kept
}

// splitCamel puts a space at each lower-to-upper case change, so "JavaScript"
// reads as "Java Script"
func splitCamel(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	prevLower := false
	for _, r := range name {
		if prevLower && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r)
	}
	return b.String()
}

// Normalize returns the comparison key of a topic name
func Normalize(name string) string {
	return strings.Join(Tokens(name), " ")
}
