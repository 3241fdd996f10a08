// Package extract pulls the readable text out of lecture PDFs.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("quizgenius.extract")

var (
	// ErrNotPDF is returned when the data cannot be parsed as a PDF.
	ErrNotPDF = errors.New("file is not a valid PDF")
	// ErrNoText is returned when no page contains readable text.
	ErrNoText = errors.New("no text could be extracted from the PDF")
)

// Magic is the header every PDF file starts with.
var Magic = []byte("%PDF-")

// Result is the text of a PDF.
type Result struct {
	// Text is the normalized text of all pages, separated by blank lines.
	Text string
	// Pages is the normalized text of each page. Pages without text are empty strings.
	Pages     []string
	PageCount int
}

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, Magic)
}

// Extract parses data as a PDF and returns its text.
//
// When the PDF is valid but contains no text, the page count is still
// reported along with ErrNoText.
func Extract(ctx context.Context, data []byte) (result Result, err error) {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	span.SetAttributes(attribute.Int("pdf.size", len(data)))

	if !IsPDF(data) {
		span.SetStatus(otelcodes.Error, "Missing PDF header")
		return Result{}, ErrNotPDF
	}

	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(otelcodes.Error, "Parser panicked")
			result, err = Result{}, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		span.SetStatus(otelcodes.Error, "Failed to open PDF")
		span.RecordError(err)
		return Result{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	result.PageCount = reader.NumPage()
	result.Pages = make([]string, 0, result.PageCount)

	for i := 1; i <= result.PageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			result.Pages = append(result.Pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			span.SetStatus(otelcodes.Error, "Failed to read page")
			span.RecordError(err)
			return Result{}, fmt.Errorf("%w: page %d: %v", ErrNotPDF, i, err)
		}

		result.Pages = append(result.Pages, Normalize(text))
	}

	nonEmpty := make([]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		if page != "" {
			nonEmpty = append(nonEmpty, page)
		}
	}
	result.Text = strings.Join(nonEmpty, "\n\n")

	span.SetAttributes(
		attribute.Int("pdf.pages", result.PageCount),
		attribute.Int("pdf.text_length", len(result.Text)),
	)

	if result.Text == "" {
		span.SetStatus(otelcodes.Error, "No text")
		return result, ErrNoText
	}

	span.SetStatus(otelcodes.Ok, "Text extracted")
	return result, nil
}
