package generation

import (
	"strings"
	"unicode/utf8"
)

// PrepareSource trims the lecture text and limits it to maxChars characters.
//
// Text longer than maxChars is cut at the last paragraph break before the limit,
// or at the last line break when the first paragraph alone is too long.
// It reports whether the text was truncated.
func PrepareSource(text string, minChars, maxChars int) (string, bool, error) {
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) < minChars {
		return "", false, ErrInsufficientText
	}

	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text, false, nil
	}

	cut := string(runes[:maxChars])
	if idx := strings.LastIndex(cut, "\n\n"); idx > 0 {
		cut = cut[:idx]
	} else if idx := strings.LastIndex(cut, "\n"); idx > 0 {
		cut = cut[:idx]
	}

	return strings.TrimSpace(cut), true, nil
}
