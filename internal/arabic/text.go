// Package arabic holds the small text helpers the scraper needs for Arabic prose.
package arabic

import (
	"regexp"
	"strings"
)

var (
	tashkeelPattern   = regexp.MustCompile(`[\x{0617}-\x{061A}\x{064B}-\x{0652}\x{06D6}-\x{06ED}\x{08D4}-\x{08E1}\x{08D4}-\x{08ED}\x{08F4}-\x{08FF}]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripTashkeel removes diacritical marks, leaving the bare letters.
func StripTashkeel(text string) string {
	return tashkeelPattern.ReplaceAllString(text, "")
}

// NormalizeSpace replaces non-breaking spaces and collapses whitespace runs.
func NormalizeSpace(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// SplitSentences splits prose on full stops and drops empty fragments.
func SplitSentences(text string) []string {
	parts := strings.Split(NormalizeSpace(text), ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
