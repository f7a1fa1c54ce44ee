package checks

import (
	"image"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	minTextureScore   = 10
	minGuillocheScore = 0.1
)

// SecurityFeatures looks for printed micro-texture and fine line patterns.
// Both scores are reported; the check fires only when both are high.
func SecurityFeatures(g *image.Gray) models.CheckResult {
	detail := models.SecurityDetail{
		TextureScore:   imaging.MeanAbs(imaging.Laplacian(g)),
		GuillocheScore: EdgeDensity(g),
	}
	if detail.TextureScore <= minTextureScore || detail.GuillocheScore <= minGuillocheScore {
		return models.CheckResult{Detail: detail}
	}
	return detected(models.CheckSecurityFeatures, detail)
}

// EdgeDensity returns the fraction of pixels flagged by the edge operator.
func EdgeDensity(g *image.Gray) float64 {
	n := g.Rect.Dx() * g.Rect.Dy()
	if n == 0 {
		return 0
	}
	return float64(imaging.CountNonZero(imaging.Canny(g, cannyLow, cannyHigh))) / float64(n)
}
