package imaging

import (
	"image"
	"math"
	"math/rand/v2"
)

// Segment is a detected line segment between two pixel coordinates.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// HoughParams configures the probabilistic Hough transform. Angles are in
// radians and describe the line normal; pi/2 is a horizontal line.
type HoughParams struct {
	Rho           float64
	Theta         float64
	MinAngle      float64
	MaxAngle      float64
	Threshold     int
	MinLineLength float64
	MaxLineGap    int
}

// houghSeed fixes the point visiting order so results are reproducible.
const houghSeed = 0x5eed

// HoughLinesP runs the progressive probabilistic Hough transform over the
// non-zero pixels of bin. Points are visited in a fixed pseudo-random order;
// whenever an accumulator cell reaches the threshold the corresponding line
// is walked in both directions, tolerating gaps up to MaxLineGap, and the
// walked pixels are retired. Segments at least MinLineLength long in x or y
// are returned.
func HoughLinesP(bin *image.Gray, p HoughParams) []Segment {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	if w == 0 || h == 0 || p.Rho <= 0 || p.Theta <= 0 || p.MaxAngle < p.MinAngle {
		return nil
	}

	numAngle := int(math.Round((p.MaxAngle-p.MinAngle)/p.Theta)) + 1
	numRho := int(math.Round(float64((w+h)*2+1) / p.Rho))
	irho := 1 / p.Rho
	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		angle := p.MinAngle + float64(n)*p.Theta
		cosT[n] = math.Cos(angle) * irho
		sinT[n] = math.Sin(angle) * irho
	}

	accum := make([]int, numAngle*numRho)
	mask := make([]bool, w*h)
	voted := make([]bool, w*h)
	var points []image.Point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.Pix[y*bin.Stride+x] != 0 {
				mask[y*w+x] = true
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}

	rhoIndex := func(n, x, y int) int {
		return n*numRho + int(math.RoundToEven(float64(x)*cosT[n]+float64(y)*sinT[n])) + (numRho-1)/2
	}
	vote := func(x, y, delta int) {
		for n := 0; n < numAngle; n++ {
			accum[rhoIndex(n, x, y)] += delta
		}
	}

	rng := rand.New(rand.NewPCG(houghSeed, houghSeed))
	var segments []Segment
	for _, idx := range rng.Perm(len(points)) {
		pt := points[idx]
		if !mask[pt.Y*w+pt.X] {
			continue
		}

		maxVal, maxN := p.Threshold-1, -1
		for n := 0; n < numAngle; n++ {
			r := rhoIndex(n, pt.X, pt.Y)
			accum[r]++
			if accum[r] > maxVal {
				maxVal, maxN = accum[r], n
			}
		}
		voted[pt.Y*w+pt.X] = true
		if maxN < 0 {
			continue
		}

		walker := newLineWalker(pt, -sinT[maxN], cosT[maxN])
		var ends [2]image.Point
		for k := 0; k < 2; k++ {
			ends[k] = pt
			gap := 0
			walker.walk(k, w, h, func(q image.Point) bool {
				if mask[q.Y*w+q.X] {
					gap = 0
					ends[k] = q
					return true
				}
				gap++
				return gap <= p.MaxLineGap
			})
		}

		good := math.Abs(float64(ends[1].X-ends[0].X)) >= p.MinLineLength ||
			math.Abs(float64(ends[1].Y-ends[0].Y)) >= p.MinLineLength

		for k := 0; k < 2; k++ {
			walker.walk(k, w, h, func(q image.Point) bool {
				i := q.Y*w + q.X
				if mask[i] {
					if good && voted[i] {
						vote(q.X, q.Y, -1)
						voted[i] = false
					}
					mask[i] = false
				}
				return q != ends[k]
			})
		}

		if good {
			segments = append(segments, Segment{X1: ends[0].X, Y1: ends[0].Y, X2: ends[1].X, Y2: ends[1].Y})
		}
	}
	return segments
}

// lineWalker steps along a line one pixel at a time on its dominant axis.
type lineWalker struct {
	x0, y0 float64
	dx, dy float64
	xMajor bool
}

func newLineWalker(start image.Point, a, b float64) lineWalker {
	lw := lineWalker{x0: float64(start.X), y0: float64(start.Y)}
	if math.Abs(a) > math.Abs(b) {
		lw.xMajor = true
		lw.dx = math.Copysign(1, a)
		lw.dy = b / math.Abs(a)
		lw.y0 += 0.5
	} else {
		lw.dy = math.Copysign(1, b)
		lw.dx = a / math.Abs(b)
		lw.x0 += 0.5
	}
	return lw
}

// walk visits pixels from the start in direction k (0 forward, 1 backward)
// until it leaves the image or visit returns false.
func (lw lineWalker) walk(k, w, h int, visit func(image.Point) bool) {
	dx, dy := lw.dx, lw.dy
	if k > 0 {
		dx, dy = -dx, -dy
	}
	for x, y := lw.x0, lw.y0; ; x, y = x+dx, y+dy {
		q := image.Point{X: int(math.Floor(x)), Y: int(math.Floor(y))}
		if q.X < 0 || q.Y < 0 || q.X >= w || q.Y >= h {
			return
		}
		if !visit(q) {
			return
		}
	}
}
