package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize cleans up the raw text of a page while keeping its line structure.
//
//   - runs of spaces and tabs inside a line become one space
//   - leading and trailing whitespace of each line is dropped
//   - a word hyphenated across a line break is joined ("exam-" + "ple")
//   - consecutive blank lines become one blank line
//   - blank lines at the start and the end are dropped
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		lines = append(lines, strings.Join(strings.FieldsFunc(line, isSpace), " "))
	}

	lines = joinHyphenated(lines)

	var b strings.Builder
	blank := false
	for _, line := range lines {
		if line == "" {
			blank = b.Len() > 0
			continue
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		b.WriteString(line)
		blank = false
	}

	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\f' || r == '\v' || r == '\u00a0'
}

// joinHyphenated merges a line ending in "letter-" with the next line when that
// line starts with a lower-case letter.
func joinHyphenated(lines []string) []string {
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		for i+1 < len(lines) && endsWithHyphenatedWord(line) && startsWithLower(lines[i+1]) {
			next := lines[i+1]
			word, rest, _ := strings.Cut(next, " ")
			line = strings.TrimSuffix(line, "-") + word

			if rest != "" {
				lines[i+1] = rest
				break
			}
			i++
		}

		out = append(out, line)
	}

	return out
}

func endsWithHyphenatedWord(line string) bool {
	if !strings.HasSuffix(line, "-") || len(line) < 2 {
		return false
	}

	r, _ := utf8.DecodeLastRuneInString(strings.TrimSuffix(line, "-"))
	return unicode.IsLetter(r)
}

func startsWithLower(line string) bool {
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsLower(r)
}
