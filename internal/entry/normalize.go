package entry

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeTag trims a tag and collapses internal whitespace to single
// spaces. Case is preserved.
func NormalizeTag(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeTags normalizes every tag and drops the ones left empty. Order and
// duplicates are kept. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = NormalizeTag(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTitle trims a title, substituting DefaultTitle when nothing is
// left.
func NormalizeTitle(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return DefaultTitle
	}
	return s
}
