package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{"plain words", "Acme Corp", "job", "acme-corp"},
		{"job triple", "Acme-Engineer-2020-01-01", "job", "acme-engineer-2020-01-01"},
		{"accents are decomposed", "Café Déjà Vu", "job", "cafe-deja-vu"},
		{"accents inside a word do not split it", "Résumé Writer", "job", "resume-writer"},
		{"punctuation runs collapse", "C++ / Go!!  Rust", "job", "c-go-rust"},
		{"leading and trailing separators trimmed", "--Hello, World--", "job", "hello-world"},
		{"non latin letters kept", "日本語 テスト", "job", "日本語-テスト"},
		{"digits kept", "Q3 2023 OKRs", "job", "q3-2023-okrs"},
		{"empty uses fallback", "", "highlight", "highlight"},
		{"only symbols uses fallback", " -- !! ", "highlight", "highlight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.input, tt.fallback)
			assert.Equal(t, tt.expected, got)
			assert.True(t, IsSlug(got), "Slugify(%q) = %q should match the slug grammar", tt.input, got)
		})
	}
}

func TestSlugify_AlwaysMatchesGrammar(t *testing.T) {
	inputs := []string{
		"a", "A--b", "  x  ", "Ünïcödé", "ﬁnance", "½ done", "tab\tseparated", "new\nline",
		"emoji 🚀 launch", "under_score", "dot.separated.words", "---", "Ⅻ roman",
	}
	for _, in := range inputs {
		got := Slugify(in, "fallback")
		assert.True(t, IsSlug(got), "Slugify(%q) = %q", in, got)
		assert.False(t, strings.Contains(got, "--"), "Slugify(%q) = %q has consecutive hyphens", in, got)
	}
}

func TestIsSlug(t *testing.T) {
	valid := []string{"acme", "acme-engineer-2020-01-01", "日本語-テスト", "x-2", "ACME"}
	invalid := []string{"", "-acme", "acme-", "acme--corp", "acme corp", "acme_corp", "acme.corp"}

	for _, s := range valid {
		assert.True(t, IsSlug(s), "%q should be a slug", s)
	}
	for _, s := range invalid {
		assert.False(t, IsSlug(s), "%q should not be a slug", s)
	}
}

func TestDisambiguate(t *testing.T) {
	used := map[string]int{}

	assert.Equal(t, "acme", Disambiguate("acme", used))
	assert.Equal(t, "acme-2", Disambiguate("acme", used))
	assert.Equal(t, "acme-3", Disambiguate("acme", used))
	assert.Equal(t, "globex", Disambiguate("globex", used))

	// A fresh batch starts over.
	assert.Equal(t, "acme", Disambiguate("acme", map[string]int{}))
}

func TestBuildJobSlug(t *testing.T) {
	assert.Equal(t, "acme-engineer-2020-01-01", BuildJobSlug("Acme", "Engineer", "2020-01-01"))
	assert.Equal(t, "2020-01-01", BuildJobSlug("", "", "2020-01-01"))
	assert.Equal(t, FallbackJobSlug, BuildJobSlug("", "", ""))
}

func TestBuildHighlightSlug(t *testing.T) {
	assert.Equal(t, "shipped-x-2020-02-01", BuildHighlightSlug("Shipped X", "2020-02-01", ""))
	assert.Equal(t,
		"acme-engineer-2020-01-01-shipped-x-2020-02-01",
		BuildHighlightSlug("Shipped X", "2020-02-01", "acme-engineer-2020-01-01"),
	)
	assert.Equal(t, FallbackHighlightSlug, BuildHighlightSlug("!!", "", ""))
}
