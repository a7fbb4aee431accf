package search

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases s, turns every non-word rune into a separator and
// returns the remaining words in order. Word runes are letters, digits and
// underscore.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

func lowerSet(items ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range items {
		for _, s := range list {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				set[s] = true
			}
		}
	}
	return set
}
