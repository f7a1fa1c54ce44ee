package imaging

import "image"

// ApproxPolyClosed simplifies a closed contour with the Douglas-Peucker
// algorithm: every dropped point lies within epsilon of the kept polygon.
// The split starts from an approximate diameter of the contour so the
// result does not depend on where the chain begins.
func ApproxPolyClosed(c Contour, epsilon float64) Contour {
	n := len(c)
	if n <= 2 {
		return append(Contour(nil), c...)
	}

	a := farthestFrom(c, 0)
	b := farthestFrom(c, a)
	if dist(c[a], c[b]) <= epsilon {
		return Contour{c[a]}
	}

	out := Contour{c[a]}
	out = append(out, simplifyChain(c, a, b, epsilon)...)
	out = append(out, c[b])
	out = append(out, simplifyChain(c, b, a, epsilon)...)
	return out
}

func farthestFrom(c Contour, from int) int {
	best, bestDist := from, -1.0
	for i, p := range c {
		if d := dist(c[from], p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// simplifyChain returns the interior points kept on the cyclic chain from
// index start to index end, both excluded, in traversal order.
func simplifyChain(c Contour, start, end int, epsilon float64) Contour {
	n := len(c)
	length := (end - start + n) % n
	if length < 2 {
		return nil
	}
	at := func(offset int) image.Point {
		return c[(start+offset)%n]
	}

	keep := make([]bool, length+1)
	type span struct{ lo, hi int }
	stack := []span{{0, length}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}
		idx, maxDist := -1, epsilon
		for i := s.lo + 1; i < s.hi; i++ {
			if d := segmentDistance(at(i), at(s.lo), at(s.hi)); d > maxDist {
				idx, maxDist = i, d
			}
		}
		if idx < 0 {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
	}

	var out Contour
	for i := 1; i < length; i++ {
		if keep[i] {
			out = append(out, at(i))
		}
	}
	return out
}

// segmentDistance is the distance from p to the line through a and b, or to
// a itself when the two coincide.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	cross := dx*float64(p.Y-a.Y) - dy*float64(p.X-a.X)
	if cross < 0 {
		cross = -cross
	}
	return cross / dist(a, b)
}
