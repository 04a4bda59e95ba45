// Package identity derives human-readable slugs and deterministic stable identifiers
// from the display attributes of jobs and highlights.
package identity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback slugs used when the display attributes produce nothing usable.
const (
	FallbackJobSlug       = "job"
	FallbackHighlightSlug = "highlight"
)

// SlugPattern matches one or more runs of letters or digits separated by single hyphens.
var SlugPattern = regexp.MustCompile(`^[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)*$`)

// IsSlug reports whether s satisfies the slug grammar.
func IsSlug(s string) bool {
	return SlugPattern.MatchString(s)
}

// Slugify lower-cases value, decomposes accented characters, collapses every run of
// characters that are not letters or digits into one hyphen and trims hyphens from
// both ends. It returns fallback when nothing is left.
func Slugify(value, fallback string) string {
	decomposed, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))),
		strings.ToLower(value),
	)
	if err != nil {
		decomposed = norm.NFKD.String(strings.ToLower(value))
	}

	var sb strings.Builder
	sb.Grow(len(decomposed))
	pendingHyphen := false
	for _, r := range decomposed {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingHyphen = true
	}

	if sb.Len() == 0 {
		return fallback
	}
	return sb.String()
}

// Disambiguate returns base the first time it is seen in a batch and base-2, base-3, …
// on later collisions. used is the batch-scoped counter map and is updated in place.
func Disambiguate(base string, used map[string]int) string {
	count := used[base]
	used[base] = count + 1
	if count == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(count+1)
}

// BuildJobSlug derives a job's base slug from company, role and start date.
func BuildJobSlug(company, role, startDate string) string {
	return Slugify(company+"-"+role+"-"+startDate, FallbackJobSlug)
}

// BuildHighlightSlug derives a highlight's base slug. The parent job slug, when the
// highlight is linked, is prefixed to keep same-titled highlights of different jobs apart.
func BuildHighlightSlug(title, startDate, parentJobSlug string) string {
	base := title + "-" + startDate
	if parentJobSlug != "" {
		base = parentJobSlug + "-" + base
	}
	return Slugify(base, FallbackHighlightSlug)
}
