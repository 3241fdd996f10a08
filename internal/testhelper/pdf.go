package testhelper

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
)

// NewPDF renders a PDF with one page per element of pages, one line per string.
// A page without lines is left blank.
func NewPDF(t *testing.T, pages ...[]string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)

	for _, lines := range pages {
		pdf.AddPage()
		for _, line := range lines {
			pdf.Cell(0, 8, line)
			pdf.Ln(8)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Failed to render PDF: %v", err)
	}

	return buf.Bytes()
}

// LectureText is a paragraph long enough to generate questions from.
const LectureText = "Photosynthesis converts light energy into chemical energy stored in glucose."
