package imaging

import (
	"image"
	"math"
)

// Contour is a closed chain of boundary pixels.
type Contour []image.Point

// Counterclockwise neighbour offsets in image coordinates (y grows down),
// starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// FindExternalContours traces the outer border of every 8-connected
// foreground component that is not enclosed by another component. Straight
// horizontal, vertical and diagonal runs are compressed to their end points.
// Contours are returned in raster order of their first pixel.
func FindExternalContours(bin *image.Gray) []Contour {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := func(x, y int) bool {
		return bin.Pix[y*bin.Stride+x] != 0
	}

	labels, starts := labelComponents(w, h, fg)
	outside := outerBackground(w, h, fg)

	external := make([]bool, len(starts))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := labels[y*w+x]
			if l < 0 || external[l] {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				external[l] = true
				continue
			}
			if outside[y*w+x-1] || outside[y*w+x+1] || outside[(y-1)*w+x] || outside[(y+1)*w+x] {
				external[l] = true
			}
		}
	}

	var contours []Contour
	for l, start := range starts {
		if !external[l] {
			continue
		}
		member := func(p image.Point) bool {
			return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == int32(l)
		}
		contours = append(contours, compressChain(traceBorder(start, member)))
	}
	return contours
}

// labelComponents assigns an 8-connected component label to each foreground
// pixel (-1 for background) and returns the raster-first pixel per label.
func labelComponents(w, h int, fg func(x, y int) bool) ([]int32, []image.Point) {
	labels := make([]int32, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var starts []image.Point
	var queue []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg(x, y) || labels[y*w+x] >= 0 {
				continue
			}
			label := int32(len(starts))
			starts = append(starts, image.Point{X: x, Y: y})
			labels[y*w+x] = label
			queue = append(queue[:0], y*w+x)
			for len(queue) > 0 {
				i := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cx, cy := i%w, i/w
				for _, d := range neighbours {
					nx, ny := cx+d.X, cy+d.Y
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if labels[j] < 0 && fg(nx, ny) {
						labels[j] = label
						queue = append(queue, j)
					}
				}
			}
		}
	}
	return labels, starts
}

// outerBackground marks background pixels 4-connected to the image frame.
func outerBackground(w, h int, fg func(x, y int) bool) []bool {
	outside := make([]bool, w*h)
	var queue []int
	seed := func(x, y int) {
		i := y*w + x
		if !outside[i] && !fg(x, y) {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}
	return outside
}

func direction(from, to image.Point) int {
	d := to.Sub(from)
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return 0
}

// traceBorder follows the outer border of the component containing start,
// which must be its raster-first pixel.
func traceBorder(start image.Point, member func(image.Point) bool) Contour {
	// Clockwise search around start, beginning west.
	var first image.Point
	found := false
	for k := 0; k < 8; k++ {
		p := start.Add(neighbours[(4-k+8)%8])
		if member(p) {
			first, found = p, true
			break
		}
	}
	if !found {
		return Contour{start}
	}

	var chain Contour
	prev, cur := first, start
	for {
		d := direction(cur, prev)
		var next image.Point
		for k := 1; k <= 8; k++ {
			p := cur.Add(neighbours[(d+k)%8])
			if member(p) {
				next = p
				break
			}
		}
		chain = append(chain, cur)
		if next == start && cur == first {
			return chain
		}
		prev, cur = cur, next
	}
}

// compressChain drops points that continue the direction of the previous
// step.
func compressChain(c Contour) Contour {
	n := len(c)
	if n <= 2 {
		return c
	}
	out := make(Contour, 0, n)
	for i := 0; i < n; i++ {
		prev, cur, next := c[(i-1+n)%n], c[i], c[(i+1)%n]
		if cur.Sub(prev) != next.Sub(cur) {
			out = append(out, cur)
		}
	}
	if len(out) == 0 {
		return Contour{c[0]}
	}
	return out
}

// ContourArea returns the absolute area enclosed by c (shoelace formula).
func ContourArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	sum := 0
	for i := range c {
		j := (i + 1) % len(c)
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// ArcLength returns the perimeter of c, including the closing segment when
// closed is set.
func ArcLength(c Contour, closed bool) float64 {
	if len(c) < 2 {
		return 0
	}
	length := 0.0
	for i := 1; i < len(c); i++ {
		length += dist(c[i-1], c[i])
	}
	if closed {
		length += dist(c[len(c)-1], c[0])
	}
	return length
}

// BoundingRect returns the smallest upright rectangle containing c.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	r.Max = r.Max.Add(image.Point{X: 1, Y: 1})
	return r
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
