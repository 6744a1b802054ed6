package search

import "regexp"

// Technical-term patterns. A token matching any of these is treated as an
// identifier rather than prose, which shifts weight toward exact matching.
var (
	camelCasePattern    = regexp.MustCompile(`^[a-z]+(?:[A-Z][a-z0-9]*)+$`)
	pascalCasePattern   = regexp.MustCompile(`^(?:[A-Z][a-z0-9]+){2,}$`)
	constantCasePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(?:_[A-Z0-9]+)+$`)
	dottedCallPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+$`)
	funcCallPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\(\)$`)

	quotedPhrasePattern = regexp.MustCompile(`"([^"]+)"`)
)

// isTechnicalTerm reports whether a token looks like a code identifier.
func isTechnicalTerm(token string) bool {
	return camelCasePattern.MatchString(token) ||
		pascalCasePattern.MatchString(token) ||
		constantCasePattern.MatchString(token) ||
		dottedCallPattern.MatchString(token) ||
		funcCallPattern.MatchString(token)
}

// extractQuotedPhrases returns the contents of double-quoted spans.
func extractQuotedPhrases(query string) []string {
	matches := quotedPhrasePattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}
	phrases := make([]string, 0, len(matches))
	for _, m := range matches {
		phrases = append(phrases, m[1])
	}
	return phrases
}
