package checks

import (
	"image"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	// Normalized gradient magnitude a pixel must exceed.
	hologramMagnitude = 100
	// Share of such pixels needed to report a hologram.
	hologramRatio = 0.05
)

// Hologram measures the density of strong gradients, which optically
// variable foils produce in photographs. The ratio is always reported.
func Hologram(g *image.Gray) models.CheckResult {
	ratio := GradientRatio(g)
	detail := models.HologramDetail{GradientRatio: ratio}
	if ratio <= hologramRatio {
		return models.CheckResult{Detail: detail}
	}
	return detected(models.CheckHologram, detail)
}

// GradientRatio returns the fraction of pixels whose Sobel magnitude,
// rescaled to 0..255, is above the hologram cut-off.
func GradientRatio(g *image.Gray) float64 {
	gx, gy := imaging.Sobel(g)
	norm := imaging.NormalizeMinMax(imaging.Magnitude(gx, gy))
	n := norm.Rect.Dx() * norm.Rect.Dy()
	if n == 0 {
		return 0
	}
	return float64(imaging.CountAbove(norm, hologramMagnitude)) / float64(n)
}
