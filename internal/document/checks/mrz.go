package checks

import (
	"image"
	"math"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	// The machine-readable zone is searched in the bottom fifth of the page.
	mrzBandStart   = 0.8
	mrzVotes       = 100
	mrzMinLength   = 0.5
	mrzMaxGap      = 10
	mrzMinSegments = 2
)

// MRZ looks for at least two long, near-horizontal text baselines in the
// bottom band of the document.
func MRZ(g *image.Gray) models.CheckResult {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	bin := imaging.AdaptiveThresholdInv(g, adaptiveBlockSize, adaptiveC)
	band := imaging.SubRows(bin, int(float64(h)*mrzBandStart), h)

	segments := imaging.HoughLinesP(band, imaging.HoughParams{
		Rho:           1,
		Theta:         math.Pi / 180,
		MinAngle:      80 * math.Pi / 180,
		MaxAngle:      100 * math.Pi / 180,
		Threshold:     mrzVotes,
		MinLineLength: mrzMinLength * float64(w),
		MaxLineGap:    mrzMaxGap,
	})

	detail := models.MRZDetail{LineCount: len(segments)}
	if len(segments) < mrzMinSegments {
		return models.CheckResult{Detail: detail}
	}
	return detected(models.CheckMRZ, detail)
}
