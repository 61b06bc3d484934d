package snippet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapsToSentenceBoundaries(t *testing.T) {
	got := Build("... java is great. Spring boot is nice ...", []string{"spring"})
	require.Len(t, got, 1)
	assert.Equal(t, "spring", got[0].Term)
	assert.Equal(t, []string{"...  Spring boot is nice . ..."}, got[0].Snippets)
}

func TestBuildMultipleTermsKeepOrder(t *testing.T) {
	got := Build("Test containing word java 1. Spring", []string{"java", "spring", "kotlin"})
	assert.Equal(t, []WordSnippets{
		{Term: "java", Snippets: []string{"Test containing word java 1. ..."}},
		{Term: "spring", Snippets: []string{"...  Spring"}},
	}, got)
}

func TestBuildCapsSnippetsPerTerm(t *testing.T) {
	got := Build("Go is great. Go is fast! Go? go", []string{"go"})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Go is great. ...", "...  Go is fast! ..."}, got[0].Snippets)
}

func TestBuildNewlineIsATerminator(t *testing.T) {
	got := Build("Line one\nthe needle is here\nline three", []string{"needle"})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"... the needle is here\n ..."}, got[0].Snippets)
}

func TestBuildKeepsRoughWindowWithoutTerminators(t *testing.T) {
	content := strings.Repeat("a", 50) + " needle " + strings.Repeat("b", 50)
	got := Build(content, []string{"needle"})
	require.Len(t, got, 1)
	want := "... " + strings.Repeat("a", 29) + " needle " + strings.Repeat("b", 29) + " ..."
	assert.Equal(t, []string{want}, got[0].Snippets)
}

func TestBuildMatchesSubstrings(t *testing.T) {
	got := Build("JavaScript is not Java.", []string{"java"})
	require.Len(t, got, 1)
	assert.Len(t, got[0].Snippets, 2)
}

func TestBuildOffsetsSurviveMultibyteText(t *testing.T) {
	got := Build("Ünïcödé prefix. The term sits here.", []string{"term"})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"...  The term sits here."}, got[0].Snippets)
}

func TestBuildBlankInputs(t *testing.T) {
	assert.Nil(t, Build("   ", []string{"x"}))
	assert.Nil(t, Build("content", nil))
	assert.Nil(t, Build("content", []string{"absent"}))
}
