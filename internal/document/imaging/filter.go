package imaging

import (
	"image"
	"math"
)

// binomial5 is the 5-tap smoothing kernel used for a 5x5 Gaussian with the
// default sigma; its taps sum to 16.
var binomial5 = [5]int{1, 4, 6, 4, 1}

// GaussianBlur5 smooths g with a separable 5x5 Gaussian. Borders are
// reflected without repeating the edge sample.
func GaussianBlur5(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	tmp := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			sum := 0
			for k, weight := range binomial5 {
				sum += weight * int(row[reflect101(x+k-2, w)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k, weight := range binomial5 {
				sum += weight * tmp[reflect101(y+k-2, h)*w+x]
			}
			out.Pix[y*out.Stride+x] = uint8((sum + 128) >> 8)
		}
	}
	return out
}

// GaussianKernel returns a normalized 1-D Gaussian of the given odd size. A
// non-positive sigma is derived from the size.
func GaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	kernel := make([]float64, size)
	center := size / 2
	sum := 0.0
	for i := range kernel {
		d := float64(i - center)
		kernel[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianMean smooths g with a separable kernel and replicated borders.
func gaussianMean(g *image.Gray, kernel []float64) *Plane {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	half := len(kernel) / 2
	tmp := NewPlane(w, h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, weight := range kernel {
				sum += weight * float64(row[replicate(x+k-half, w)])
			}
			tmp.Data[y*w+x] = sum
		}
	}

	out := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, weight := range kernel {
				sum += weight * tmp.Data[replicate(y+k-half, h)*w+x]
			}
			out.Data[y*w+x] = sum
		}
	}
	return out
}

// AdaptiveThresholdInv binarizes g against a Gaussian-weighted local mean
// over a blockSize window. A pixel becomes foreground (255) when it is not
// brighter than the local mean minus c, so dark ink on a lighter background
// is kept regardless of illumination. Uniform regions map to background.
func AdaptiveThresholdInv(g *image.Gray, blockSize int, c float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	mean := gaussianMean(g, GaussianKernel(blockSize, 0))
	delta := int(math.Ceil(c))

	out := NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			local := int(math.Round(mean.Data[y*w+x]))
			if int(g.Pix[y*g.Stride+x])-local <= -delta {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// Sobel returns the 3x3 horizontal and vertical derivatives of g.
func Sobel(g *image.Gray) (gx, gy *Plane) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	gx, gy = NewPlane(w, h), NewPlane(w, h)
	at := func(x, y int) float64 {
		return float64(g.Pix[reflect101(y, h)*g.Stride+reflect101(x, w)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, tc, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			ml, mr := at(x-1, y), at(x+1, y)
			bl, bc, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)

			gx.Data[y*w+x] = (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy.Data[y*w+x] = (bl + 2*bc + br) - (tl + 2*tc + tr)
		}
	}
	return gx, gy
}

// Laplacian returns the 4-neighbour second derivative of g.
func Laplacian(g *image.Gray) *Plane {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := NewPlane(w, h)
	at := func(x, y int) float64 {
		return float64(g.Pix[reflect101(y, h)*g.Stride+reflect101(x, w)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Data[y*w+x] = at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
		}
	}
	return out
}

// MeanAbs returns the mean absolute value of p.
func MeanAbs(p *Plane) float64 {
	if len(p.Data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range p.Data {
		sum += math.Abs(v)
	}
	return sum / float64(len(p.Data))
}
