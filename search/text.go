package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// snippetRadius is the number of characters kept on each side of a match.
const snippetRadius = 100

// foldRunes lower-cases rune by rune so indexes line up with the original.
func foldRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

// matchText counts case-insensitive, non-overlapping occurrences of query in
// text and returns a snippet around the first one.
func matchText(text, query string) (count int, snippet string) {
	q := string(foldRunes(strings.TrimSpace(query)))
	if q == "" {
		return 0, ""
	}
	original := []rune(text)
	folded := string(foldRunes(text))

	count = strings.Count(folded, q)
	if count == 0 {
		return 0, ""
	}

	at := utf8.RuneCountInString(folded[:strings.Index(folded, q)])
	start := max(0, at-snippetRadius)
	end := min(len(original), at+utf8.RuneCountInString(q)+snippetRadius)
	return count, strings.TrimSpace(string(original[start:end]))
}

// containsFold reports whether text contains query, ignoring case.
func containsFold(text, query string) bool {
	q := string(foldRunes(strings.TrimSpace(query)))
	return q != "" && strings.Contains(string(foldRunes(text)), q)
}
