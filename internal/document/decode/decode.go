// Package decode turns uploaded image files into pixel arrays for the
// verification pipeline.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docverify/internal/document/models"
)

// DefaultMaxPixels caps width*height of a decoded image. Compressed
// formats decode to far more memory than their encoded size.
const DefaultMaxPixels int64 = 40_000_000

// ErrTooManyPixels marks an image whose dimensions exceed the pixel budget.
var ErrTooManyPixels = errors.New("image dimensions exceed the pixel limit")

type options struct {
	maxPixels int64
}

type Option func(*options)

// WithMaxPixels overrides DefaultMaxPixels. Non-positive values are ignored.
func WithMaxPixels(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// Bytes decodes an encoded image. Grayscale sources stay single channel;
// everything else becomes three channel BGR. The header is checked against
// the pixel budget before any pixel data is decoded.
func Bytes(data []byte, opts ...Option) (models.PixelImage, string, error) {
	o := options{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.PixelImage{}, "", fmt.Errorf("%w: %v", models.ErrInvalidImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > o.maxPixels {
		return models.PixelImage{}, "", fmt.Errorf("%w: %w: %dx%d exceeds %d pixels",
			models.ErrInvalidImage, ErrTooManyPixels, cfg.Width, cfg.Height, o.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return models.PixelImage{}, "", fmt.Errorf("%w: %v", models.ErrInvalidImage, err)
	}
	px, err := FromImage(img)
	if err != nil {
		return models.PixelImage{}, "", err
	}
	return px, format, nil
}

// Reader reads r fully and decodes it like Bytes.
func Reader(r io.Reader, opts ...Option) (models.PixelImage, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.PixelImage{}, "", err
	}
	return Bytes(data, opts...)
}

// FromImage converts a decoded image to a PixelImage anchored at the
// origin.
func FromImage(img image.Image) (models.PixelImage, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return models.PixelImage{}, fmt.Errorf("%w: empty image", models.ErrInvalidImage)
	}

	switch src := img.(type) {
	case *image.Gray:
		pix := make([]uint8, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride+(b.Min.X-src.Rect.Min.X):])
		}
		return models.NewGrayImage(w, h, pix), nil
	case *image.Gray16:
		gray := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		return models.NewGrayImage(w, h, gray.Pix), nil
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), flatten(img), b.Min, draw.Src)

	pix := make([]uint8, 0, w*h*3)
	for i := 0; i < len(rgba.Pix); i += 4 {
		pix = append(pix, rgba.Pix[i+2], rgba.Pix[i+1], rgba.Pix[i])
	}
	return models.PixelImage{Width: w, Height: h, Order: models.ChannelBGR, Pix: pix}, nil
}

// flatten composites translucent images over white so transparent
// backgrounds read as paper.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}

// SniffContentType detects the media type of data from its first bytes.
// TIFF, which net/http does not sniff, is matched by its byte-order mark.
func SniffContentType(data []byte) string {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "image/tiff"
	}
	return http.DetectContentType(data)
}
