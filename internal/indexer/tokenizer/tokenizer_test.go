package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Hello, World!", []string{"hello", "world"}},
		{"keeps digits and underscores", "java_17 is v2", []string{"java_17", "is", "v2"}},
		{"no stemming or stop words", "The runners are running", []string{"the", "runners", "are", "running"}},
		{"leading separators", "  ...spring boot", []string{"spring", "boot"}},
		{"non ascii letters separate words", "café crème", []string{"caf", "cr", "me"}},
		{"blank", "   \n\t", nil},
		{"empty", "", nil},
		{"only punctuation", "!?.,", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.in)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryTermsDeduplicatesInOrder(t *testing.T) {
	assert.Equal(t, []string{"java", "spring", "boot"}, QueryTerms("Java spring JAVA boot spring"))
	assert.Empty(t, QueryTerms("   "))
}

func TestFrequencies(t *testing.T) {
	got := Frequencies("Go go GO gopher")
	assert.Equal(t, map[string]int{"go": 3, "gopher": 1}, got)
}
