package wordlist

import (
	"strings"
	"unicode"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForCharset keeps words made only of charset characters. Words with
// spaces are dropped since the space separates groups.
func FilterForCharset(charset string) FilterFunc {
	allowed := map[rune]struct{}{}
	for _, r := range strings.ToUpper(charset) {
		if !unicode.IsSpace(r) {
			allowed[r] = struct{}{}
		}
	}
	return func(word string) bool {
		if word == "" {
			return false
		}
		for _, r := range strings.ToUpper(word) {
			if _, ok := allowed[r]; !ok {
				return false
			}
		}
		return true
	}
}

// Filter returns the words keep accepts, in order.
func Filter(words []string, keep FilterFunc) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
