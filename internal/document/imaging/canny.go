package imaging

import (
	"image"
	"math"
)

const (
	tan22 = 0.4142135623730950488016887242097
	// tan(67.5) - tan(22.5)
	tan67Offset = 2.0
)

// Canny detects edges in g with hysteresis thresholds low and high. The
// gradient is a 3x3 Sobel with an L1 magnitude. Edge pixels are 255.
func Canny(g *image.Gray, low, high float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	gx, gy := Sobel(g)

	mag := NewPlane(w, h)
	for i := range mag.Data {
		mag.Data[i] = math.Abs(gx.Data[i]) + math.Abs(gy.Data[i])
	}
	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag.Data[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag.Data[i]
			if m <= low {
				continue
			}

			ax, ay := math.Abs(gx.Data[i]), math.Abs(gy.Data[i])
			tg22x := ax * tan22
			var isMax bool
			switch {
			case ay < tg22x:
				isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > tg22x+tan67Offset*ax:
				isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if gx.Data[i]*gy.Data[i] < 0 {
					s = -1
				}
				isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !isMax {
				continue
			}

			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := NewGray(w, h)
	for i, s := range state {
		if s == strong {
			out.Pix[(i/w)*out.Stride+i%w] = 255
		}
	}
	return out
}
