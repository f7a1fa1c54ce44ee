//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Enabled reports whether OCR support is compiled in.
const Enabled = true

// Tesseract recognizes text with a gosseract client. The client is not safe
// for concurrent use, so calls are serialized.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Tesseract engine for the given "+" separated languages,
// e.g. "eng+fra". An empty value keeps the Tesseract default.
func New(languages string) (Engine, error) {
	client := gosseract.NewClient()
	if languages != "" {
		if err := client.SetLanguage(strings.Split(languages, "+")...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set OCR language: %w", err)
		}
	}
	return &Tesseract{client: client}, nil
}

func (t *Tesseract) Extract(ctx context.Context, image []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	lines := make([]TextLine, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, TextLine{
			Text:       b.Word,
			Confidence: b.Confidence / 100,
			BBox:       Box{X: b.Box.Min.X, Y: b.Box.Min.Y, Width: b.Box.Dx(), Height: b.Box.Dy()},
		})
	}
	return newResult(lines), nil
}

func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
