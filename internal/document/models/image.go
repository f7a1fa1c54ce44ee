package models

import (
	"errors"
	"fmt"
)

// ErrInvalidImage marks pixel arrays the pipeline cannot interpret.
var ErrInvalidImage = errors.New("invalid pixel image")

// ChannelOrder names the interleaving of samples in a PixelImage.
type ChannelOrder string

const (
	ChannelGray ChannelOrder = "gray"
	ChannelBGR  ChannelOrder = "bgr"
	ChannelRGB  ChannelOrder = "rgb"
	ChannelBGRA ChannelOrder = "bgra"
	ChannelRGBA ChannelOrder = "rgba"
)

// Channels returns the samples per pixel for the order, or 0 if unknown.
func (o ChannelOrder) Channels() int {
	switch o {
	case ChannelGray:
		return 1
	case ChannelBGR, ChannelRGB:
		return 3
	case ChannelBGRA, ChannelRGBA:
		return 4
	default:
		return 0
	}
}

// PixelImage is a decoded, row-major array of 8-bit samples. It is owned by
// the caller; the pipeline only reads it and allocates its own derived planes.
type PixelImage struct {
	Width  int
	Height int
	Order  ChannelOrder
	Pix    []uint8
}

// Channels returns the number of interleaved samples per pixel.
func (p PixelImage) Channels() int {
	return p.Order.Channels()
}

// Validate checks the shape invariants: non-empty, two spatial dimensions, and
// a sample buffer that matches the declared geometry.
func (p PixelImage) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, p.Width, p.Height)
	}
	channels := p.Channels()
	if channels == 0 {
		return fmt.Errorf("%w: unsupported channel order %q", ErrInvalidImage, p.Order)
	}
	if want := p.Width * p.Height * channels; len(p.Pix) != want {
		return fmt.Errorf("%w: expected %d samples, got %d", ErrInvalidImage, want, len(p.Pix))
	}
	return nil
}

// NewGrayImage wraps a single-channel buffer.
func NewGrayImage(width, height int, pix []uint8) PixelImage {
	return PixelImage{Width: width, Height: height, Order: ChannelGray, Pix: pix}
}
