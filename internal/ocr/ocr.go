// Package ocr extracts text lines from document images. Recognition is
// backed by Tesseract through gosseract and is only compiled in with the
// "ocr" build tag; without it New returns ErrNotEnabled.
package ocr

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// ErrNotEnabled is returned when OCR support was not compiled in.
var ErrNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Box is a word or line bounding box in pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TextLine is one recognized line with its confidence in [0, 1].
type TextLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       Box     `json:"bbox"`
	Type       string  `json:"type"`
}

// Result is the outcome of recognizing one image.
type Result struct {
	FullText string     `json:"full_text"`
	Lines    []TextLine `json:"lines"`
}

// Engine recognizes text in an encoded image.
type Engine interface {
	Extract(ctx context.Context, image []byte) (*Result, error)
	Close() error
}

// Text classes reported per line.
const (
	TextNumeric = "numeric"
	TextAlpha   = "alpha"
	TextMixed   = "mixed"
)

// ClassifyText reports whether text is purely digits, purely letters, or
// anything else. Empty text is mixed.
func ClassifyText(text string) string {
	if text == "" {
		return TextMixed
	}
	digits, letters := true, true
	for _, r := range text {
		digits = digits && unicode.IsDigit(r)
		letters = letters && unicode.IsLetter(r)
	}
	switch {
	case digits:
		return TextNumeric
	case letters:
		return TextAlpha
	default:
		return TextMixed
	}
}

// newResult joins lines into a result, dropping blank ones.
func newResult(lines []TextLine) *Result {
	kept := make([]TextLine, 0, len(lines))
	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}
		line.Type = ClassifyText(line.Text)
		kept = append(kept, line)
		texts = append(texts, line.Text)
	}
	return &Result{FullText: strings.Join(texts, " "), Lines: kept}
}
