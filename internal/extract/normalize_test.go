package extract_test

import (
	"testing"

	"github.com/quizgenius/backend/internal/extract"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \n\t\n  ", ""},
		{"collapses spaces", "cells   are\t\tsmall", "cells are small"},
		{"trims lines", "  first line  \n\tsecond line ", "first line\nsecond line"},
		{"keeps line breaks", "one\ntwo\nthree", "one\ntwo\nthree"},
		{"collapses blank lines", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"drops blank edges", "\n\n\none\n\n", "one"},
		{"windows line endings", "one\r\ntwo", "one\ntwo"},
		{"joins hyphenated words", "the exam-\nple is good", "the example\nis good"},
		{"joins hyphenated last word", "photo-\nsynthesis", "photosynthesis"},
		{"keeps hyphen before capital", "Anglo-\nSaxon", "Anglo-\nSaxon"},
		{"keeps dash after number", "pages 10-\n20", "pages 10-\n20"},
		{"keeps lone dash", "-\nitem", "-\nitem"},
		{"non-breaking space", "a\u00a0\u00a0b", "a b"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extract.Normalize(tc.in))
		})
	}
}
