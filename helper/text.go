package helper

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TermPattern compiles a case-insensitive pattern for a literal term.
// Word boundaries are checked separately by FindWholeWord since RE2 only
// knows ASCII word boundaries.
func TermPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
}

// FindWholeWord returns the byte offsets of all matches of pattern in text
// that are not directly preceded or followed by a letter, digit or underscore.
func FindWholeWord(text string, pattern *regexp.Regexp) [][]int {
	var matches [][]int
	for _, loc := range pattern.FindAllStringIndex(text, -1) {
		if loc[0] == loc[1] {
			continue
		}
		if loc[0] > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if isWordRune(r) {
				continue
			}
		}
		if loc[1] < len(text) {
			r, _ := utf8.DecodeRuneInString(text[loc[1]:])
			if isWordRune(r) {
				continue
			}
		}
		matches = append(matches, loc)
	}
	return matches
}

// ContextWindow returns the text around [start, end) extended by width runes
// on each side, clipped to the text bounds and trimmed.
func ContextWindow(text string, start int, end int, width int) string {
	from := start
	for i := 0; i < width && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}

	to := end
	for i := 0; i < width && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	return strings.TrimSpace(text[from:to])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
