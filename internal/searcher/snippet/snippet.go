// Package snippet extracts short context windows around query terms in a
// document's content, snapped to sentence boundaries where possible.
package snippet

import (
	"slices"
	"strings"
	"unicode"
)

const (
	// ContextSize is the number of characters kept on each side of a match
	// before sentence snapping.
	ContextSize = 30
	// MaxPerTerm caps the snippets returned for one term.
	MaxPerTerm = 2

	ellipsis = "..."
)

// WordSnippets holds the snippets found for one query term.
type WordSnippets struct {
	Term     string   `json:"term"`
	Snippets []string `json:"snippets"`
}

// Build returns, for each term in order, up to MaxPerTerm snippets around
// its case-insensitive occurrences in content. Matching is by substring, so
// "java" also matches inside "javascript". Terms that never occur are
// omitted.
func Build(content string, terms []string) []WordSnippets {
	if strings.TrimSpace(content) == "" || len(terms) == 0 {
		return nil
	}
	text := []rune(content)
	lower := make([]rune, len(text))
	for i, r := range text {
		lower[i] = unicode.ToLower(r)
	}

	var result []WordSnippets
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(term)
		if strings.TrimSpace(term) == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		if snippets := forTerm(text, lower, []rune(term)); len(snippets) > 0 {
			result = append(result, WordSnippets{Term: term, Snippets: snippets})
		}
	}
	return result
}

func forTerm(text, lower, term []rune) []string {
	var snippets []string
	from := 0
	for len(snippets) < MaxPerTerm {
		idx := indexFrom(lower, term, from)
		if idx < 0 {
			break
		}
		matchEnd := idx + len(term)

		roughStart := max(0, idx-ContextSize)
		roughEnd := min(len(text), matchEnd+ContextSize)
		start := snapStart(text, roughStart, idx)
		end := max(start, min(snapEnd(text, roughEnd, matchEnd), len(text)))

		s := string(text[start:end])
		if start > 0 {
			s = ellipsis + " " + s
		}
		if end < len(text) {
			s = s + " " + ellipsis
		}
		snippets = append(snippets, strings.TrimSpace(s))

		from = matchEnd
	}
	return snippets
}

// snapStart moves the window start to just after the last sentence
// terminator between roughStart and the match.
func snapStart(text []rune, roughStart, match int) int {
	for i := max(0, match-1); i >= roughStart; i-- {
		if isTerminator(text[i]) {
			return i + 1
		}
	}
	return roughStart
}

// snapEnd moves the window end to just after the first sentence terminator
// between the match and roughEnd.
func snapEnd(text []rune, roughEnd, matchEnd int) int {
	last := min(len(text)-1, roughEnd-1)
	for i := matchEnd; i <= last; i++ {
		if isTerminator(text[i]) {
			return i + 1
		}
	}
	return roughEnd
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

func indexFrom(haystack, needle []rune, from int) int {
	if len(needle) == 0 || from > len(haystack)-len(needle) {
		return -1
	}
	for i := from; i <= len(haystack)-len(needle); i++ {
		if haystack[i] == needle[0] && slices.Equal(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
