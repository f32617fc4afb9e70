package comps

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumUnderscoreRe = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlnumHyphenRe     = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRe         = regexp.MustCompile(`\s+`)
	modelCharsRe         = regexp.MustCompile(`[^a-zA-Z0-9\-\(\)]+`)
)

// foldDiacritics strips combining marks so "Škoda" and "Citroën" slugify to
// plain ASCII before the site-specific separator rules apply.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// slugUnderscore lowercases and folds everything non-alphanumeric to "_"
// (Kleinanzeigen parameter syntax).
func slugUnderscore(s string) string {
	s = strings.ToLower(foldDiacritics(s))
	s = nonAlnumUnderscoreRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// slugHyphen lowercases and folds everything non-alphanumeric to "-"
// (AutoScout24 brand segments, Carwow slugs).
func slugHyphen(s string) string {
	s = strings.ToLower(foldDiacritics(s))
	s = nonAlnumHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// slugAutoscoutModel keeps case and parentheses: model path segments like
// "3er-(E90)" are case-sensitive on AutoScout24.
func slugAutoscoutModel(s string) string {
	s = strings.TrimSpace(foldDiacritics(s))
	s = whitespaceRe.ReplaceAllString(s, "-")
	return modelCharsRe.ReplaceAllString(s, "")
}
