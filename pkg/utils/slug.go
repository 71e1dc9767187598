package utils

import (
	"regexp"
	"strings"
)

type SlugStyle int

const (
	// SlugCollapse keeps [a-z0-9] and single hyphens, trimming hyphens at both ends.
	SlugCollapse SlugStyle = iota
	// SlugSubstitute replaces each run of symbols with a hyphen and each whitespace
	// character with another hyphen, without collapsing.
	SlugSubstitute
)

var (
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	symbolRun      = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceChar = regexp.MustCompile(`\s`)
)

func Slugify(title string, style SlugStyle) string {
	s := strings.ToLower(strings.TrimSpace(title))

	switch style {
	case SlugSubstitute:
		s = symbolRun.ReplaceAllString(s, "-")
		return whitespaceChar.ReplaceAllString(s, "-")
	default:
		s = nonAlnum.ReplaceAllString(s, "-")
		return strings.Trim(s, "-")
	}
}

func ParseSlugStyle(name string) SlugStyle {
	if strings.EqualFold(name, "substitute") {
		return SlugSubstitute
	}
	return SlugCollapse
}
