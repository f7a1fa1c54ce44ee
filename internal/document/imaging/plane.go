package imaging

import (
	"image"
	"math"

	"docverify/internal/document/models"
)

// Plane is a single-channel floating point map, row-major.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Data: make([]float64, width*height)}
}

// At returns the value at (x, y).
func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}

// NewGray allocates a zeroed 8-bit plane anchored at the origin.
func NewGray(width, height int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, width, height))
}

// Luma coefficients in 14-bit fixed point (BT.601).
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
)

// Gray converts img to a new luminance plane. Alpha is ignored.
func Gray(img models.PixelImage) *image.Gray {
	out := NewGray(img.Width, img.Height)
	n := img.Width * img.Height
	channels := img.Channels()

	if img.Order == models.ChannelGray {
		copy(out.Pix, img.Pix[:n])
		return out
	}

	rOff, gOff, bOff := 2, 1, 0
	if img.Order == models.ChannelRGB || img.Order == models.ChannelRGBA {
		rOff, bOff = 0, 2
	}
	for i := 0; i < n; i++ {
		px := img.Pix[i*channels : i*channels+channels]
		y := int(px[rOff])*lumaR + int(px[gOff])*lumaG + int(px[bOff])*lumaB
		out.Pix[i] = uint8((y + 1<<(lumaShift-1)) >> lumaShift)
	}
	return out
}

// reflect101 mirrors an out-of-range index without repeating the edge
// sample: -1 -> 1, n -> n-2.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// replicate clamps an index to the valid range.
func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Magnitude returns the per-pixel Euclidean norm of two gradient planes.
func Magnitude(gx, gy *Plane) *Plane {
	out := NewPlane(gx.Width, gx.Height)
	for i := range out.Data {
		out.Data[i] = math.Hypot(gx.Data[i], gy.Data[i])
	}
	return out
}

// NormalizeMinMax linearly rescales p into [0, 255]. A constant plane maps to
// all zeros.
func NormalizeMinMax(p *Plane) *image.Gray {
	out := NewGray(p.Width, p.Height)
	if len(p.Data) == 0 {
		return out
	}
	lo, hi := p.Data[0], p.Data[0]
	for _, v := range p.Data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	shift := -lo * scale
	for i, v := range p.Data {
		out.Pix[i] = saturate(math.RoundToEven(v*scale + shift))
	}
	return out
}

func saturate(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Histogram counts the samples of g per intensity.
func Histogram(g *image.Gray) [256]float64 {
	var hist [256]float64
	for y := 0; y < g.Rect.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+g.Rect.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

// CountAbove returns how many samples of g are strictly greater than t.
func CountAbove(g *image.Gray, t uint8) int {
	count := 0
	for y := 0; y < g.Rect.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+g.Rect.Dx()]
		for _, v := range row {
			if v > t {
				count++
			}
		}
	}
	return count
}

// CountNonZero returns how many samples of g are non-zero.
func CountNonZero(g *image.Gray) int {
	return CountAbove(g, 0)
}

// SubRows copies rows [from, to) of g into a new plane.
func SubRows(g *image.Gray, from, to int) *image.Gray {
	w := g.Rect.Dx()
	from = replicate(from, g.Rect.Dy()+1)
	to = replicate(to, g.Rect.Dy()+1)
	if to < from {
		to = from
	}
	out := NewGray(w, to-from)
	for y := from; y < to; y++ {
		copy(out.Pix[(y-from)*out.Stride:], g.Pix[y*g.Stride:y*g.Stride+w])
	}
	return out
}
