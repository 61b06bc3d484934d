// Package tokenizer splits text into lowercase word tokens. A word is a run
// of ASCII letters, digits and underscores; everything else separates words.
// There is no stemming and no stop-word list, so indexing and querying see
// exactly the same terms.
package tokenizer

import "strings"

// Tokenize lowercases text and returns its words in order, duplicates
// included.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return strings.FieldsFunc(strings.ToLower(text), isSeparator)
}

// QueryTerms tokenizes a query and drops repeated terms, keeping the first
// occurrence order.
func QueryTerms(query string) []string {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	terms := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// Frequencies counts each token of text.
func Frequencies(text string) map[string]int {
	tokens := Tokenize(text)
	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	return freq
}

func isSeparator(r rune) bool {
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	default:
		return r == '_'
	}
}
