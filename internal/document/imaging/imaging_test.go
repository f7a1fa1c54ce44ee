package imaging

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/document/models"
)

func filledGray(w, h int, value uint8) *image.Gray {
	g := NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = value
	}
	return g
}

func fillRect(g *image.Gray, r image.Rectangle, value uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[y*g.Stride+x] = value
		}
	}
}

func TestGray(t *testing.T) {
	t.Run("bgr and rgb orders agree", func(t *testing.T) {
		bgr := models.PixelImage{Width: 1, Height: 1, Order: models.ChannelBGR, Pix: []uint8{0, 0, 255}}
		rgb := models.PixelImage{Width: 1, Height: 1, Order: models.ChannelRGB, Pix: []uint8{255, 0, 0}}
		assert.Equal(t, uint8(76), Gray(bgr).Pix[0])
		assert.Equal(t, uint8(76), Gray(rgb).Pix[0])
	})

	t.Run("alpha is ignored", func(t *testing.T) {
		rgba := models.PixelImage{Width: 1, Height: 1, Order: models.ChannelRGBA, Pix: []uint8{255, 255, 255, 0}}
		assert.Equal(t, uint8(255), Gray(rgba).Pix[0])
	})

	t.Run("gray input is copied", func(t *testing.T) {
		src := models.NewGrayImage(2, 1, []uint8{10, 20})
		out := Gray(src)
		out.Pix[0] = 99
		assert.Equal(t, uint8(10), src.Pix[0])
	})
}

func TestGaussianBlur5KeepsFlatImage(t *testing.T) {
	out := GaussianBlur5(filledGray(7, 5, 131))
	for _, v := range out.Pix {
		require.Equal(t, uint8(131), v)
	}
}

func TestNormalizeMinMax(t *testing.T) {
	t.Run("rescales to full range", func(t *testing.T) {
		p := &Plane{Width: 3, Height: 1, Data: []float64{0, 5, 10}}
		assert.Equal(t, []uint8{0, 128, 255}, NormalizeMinMax(p).Pix)
	})

	t.Run("constant plane maps to zero", func(t *testing.T) {
		p := &Plane{Width: 2, Height: 1, Data: []float64{42, 42}}
		assert.Equal(t, []uint8{0, 0}, NormalizeMinMax(p).Pix)
	})
}

func TestSobelAndLaplacianOnStep(t *testing.T) {
	g := filledGray(6, 3, 0)
	fillRect(g, image.Rect(3, 0, 6, 3), 100)

	gx, gy := Sobel(g)
	assert.Equal(t, 400.0, gx.At(2, 1))
	assert.Equal(t, 400.0, gx.At(3, 1))
	assert.Equal(t, 0.0, gx.At(0, 1))
	assert.Equal(t, 0.0, gy.At(2, 1))

	lap := Laplacian(g)
	assert.Equal(t, 100.0, lap.At(2, 1))
	assert.Equal(t, -100.0, lap.At(3, 1))
	assert.InDelta(t, 600.0/18, MeanAbs(lap), 1e-9)
}

func TestCanny(t *testing.T) {
	t.Run("flat image has no edges", func(t *testing.T) {
		assert.Zero(t, CountNonZero(Canny(filledGray(20, 20, 200), 50, 150)))
	})

	t.Run("step produces a single edge column", func(t *testing.T) {
		g := filledGray(20, 10, 0)
		fillRect(g, image.Rect(10, 0, 20, 10), 255)
		edges := Canny(g, 50, 150)
		assert.Equal(t, 10, CountNonZero(edges))
	})
}

func TestAdaptiveThresholdInv(t *testing.T) {
	t.Run("flat image has no foreground", func(t *testing.T) {
		assert.Zero(t, CountNonZero(AdaptiveThresholdInv(filledGray(30, 30, 17), 11, 2)))
	})

	t.Run("dark mark on light paper is foreground", func(t *testing.T) {
		g := filledGray(30, 30, 255)
		fillRect(g, image.Rect(14, 14, 16, 16), 0)
		bin := AdaptiveThresholdInv(g, 11, 2)
		assert.Equal(t, uint8(255), bin.Pix[14*bin.Stride+14])
		assert.Equal(t, uint8(0), bin.Pix[2*bin.Stride+2])
	})
}

func TestFindExternalContours(t *testing.T) {
	t.Run("filled square compresses to corners", func(t *testing.T) {
		g := filledGray(30, 30, 0)
		fillRect(g, image.Rect(5, 5, 15, 15), 255)

		contours := FindExternalContours(g)
		require.Len(t, contours, 1)
		assert.Equal(t, Contour{{5, 5}, {5, 14}, {14, 14}, {14, 5}}, contours[0])
		assert.Equal(t, 81.0, ContourArea(contours[0]))
		assert.Equal(t, 36.0, ArcLength(contours[0], true))
		assert.Equal(t, image.Rect(5, 5, 15, 15), BoundingRect(contours[0]))
	})

	t.Run("enclosed components are skipped", func(t *testing.T) {
		g := filledGray(24, 24, 0)
		for i := 2; i < 22; i++ {
			g.Pix[2*g.Stride+i] = 255
			g.Pix[21*g.Stride+i] = 255
			g.Pix[i*g.Stride+2] = 255
			g.Pix[i*g.Stride+21] = 255
		}
		fillRect(g, image.Rect(10, 10, 14, 14), 255)

		contours := FindExternalContours(g)
		require.Len(t, contours, 1)
		assert.Equal(t, image.Rect(2, 2, 22, 22), BoundingRect(contours[0]))
	})

	t.Run("single pixel", func(t *testing.T) {
		g := filledGray(5, 5, 0)
		g.Pix[2*g.Stride+2] = 255
		contours := FindExternalContours(g)
		require.Len(t, contours, 1)
		assert.Equal(t, Contour{{2, 2}}, contours[0])
		assert.Zero(t, ContourArea(contours[0]))
	})

	t.Run("empty image", func(t *testing.T) {
		assert.Empty(t, FindExternalContours(filledGray(8, 8, 0)))
	})
}

func TestApproxPolyClosed(t *testing.T) {
	var c Contour
	for x := 5; x < 15; x++ {
		c = append(c, image.Point{X: x, Y: 5})
	}
	for y := 6; y < 15; y++ {
		c = append(c, image.Point{X: 14, Y: y})
	}
	for x := 13; x > 4; x-- {
		c = append(c, image.Point{X: x, Y: 14})
	}
	for y := 13; y > 5; y-- {
		c = append(c, image.Point{X: 5, Y: y})
	}

	poly := ApproxPolyClosed(c, 0.02*ArcLength(c, true))
	assert.ElementsMatch(t, Contour{{5, 5}, {14, 5}, {14, 14}, {5, 14}}, poly)
}

func TestHistogramAndSubRows(t *testing.T) {
	g := filledGray(4, 5, 0)
	fillRect(g, image.Rect(0, 4, 4, 5), 9)

	hist := Histogram(g)
	assert.Equal(t, 16.0, hist[0])
	assert.Equal(t, 4.0, hist[9])

	band := SubRows(g, 4, 5)
	assert.Equal(t, 4, band.Rect.Dx())
	assert.Equal(t, 1, band.Rect.Dy())
	assert.Equal(t, 4, CountAbove(band, 8))
	assert.Zero(t, SubRows(g, 5, 9).Rect.Dy())
}

func horizontalParams(threshold int, minLen float64) HoughParams {
	return HoughParams{
		Rho:           1,
		Theta:         math.Pi / 180,
		MinAngle:      80 * math.Pi / 180,
		MaxAngle:      100 * math.Pi / 180,
		Threshold:     threshold,
		MinLineLength: minLen,
		MaxLineGap:    10,
	}
}

func normalize(s Segment) Segment {
	if s.X1 > s.X2 {
		return Segment{X1: s.X2, Y1: s.Y2, X2: s.X1, Y2: s.Y1}
	}
	return s
}

func TestHoughLinesP(t *testing.T) {
	t.Run("horizontal line", func(t *testing.T) {
		g := filledGray(200, 40, 0)
		fillRect(g, image.Rect(10, 20, 191, 21), 255)

		segments := HoughLinesP(g, horizontalParams(100, 100))
		require.Len(t, segments, 1)
		assert.Equal(t, Segment{X1: 10, Y1: 20, X2: 190, Y2: 20}, normalize(segments[0]))
	})

	t.Run("small gaps are bridged", func(t *testing.T) {
		g := filledGray(200, 40, 0)
		fillRect(g, image.Rect(10, 20, 91, 21), 255)
		fillRect(g, image.Rect(96, 20, 191, 21), 255)

		segments := HoughLinesP(g, horizontalParams(50, 100))
		require.Len(t, segments, 1)
		assert.Equal(t, Segment{X1: 10, Y1: 20, X2: 190, Y2: 20}, normalize(segments[0]))
	})

	t.Run("wide gaps split the line below the minimum length", func(t *testing.T) {
		g := filledGray(200, 40, 0)
		fillRect(g, image.Rect(10, 20, 91, 21), 255)
		fillRect(g, image.Rect(120, 20, 191, 21), 255)

		assert.Empty(t, HoughLinesP(g, horizontalParams(50, 100)))
	})

	t.Run("vertical lines are outside the angle range", func(t *testing.T) {
		g := filledGray(200, 40, 0)
		fillRect(g, image.Rect(50, 0, 51, 40), 255)

		assert.Empty(t, HoughLinesP(g, horizontalParams(10, 20)))
	})

	t.Run("deterministic", func(t *testing.T) {
		g := filledGray(120, 60, 0)
		fillRect(g, image.Rect(5, 10, 115, 11), 255)
		fillRect(g, image.Rect(5, 30, 115, 31), 255)
		fillRect(g, image.Rect(5, 50, 60, 51), 255)

		first := HoughLinesP(g, horizontalParams(40, 50))
		second := HoughLinesP(g, horizontalParams(40, 50))
		assert.Equal(t, first, second)
	})
}
