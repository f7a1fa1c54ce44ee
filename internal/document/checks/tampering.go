package checks

import (
	"image"
	"math"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	// Minimum jump between neighbouring normalized bins.
	histogramDelta = 0.01
	// More anomalous bins than this flag the image.
	maxAnomalyBins = 50
)

// Tampering flags images whose intensity histogram is unusually jagged, as
// splicing and local edits tend to leave.
func Tampering(g *image.Gray) models.CheckResult {
	bins := AnomalyBins(imaging.Histogram(g))
	if len(bins) <= maxAnomalyBins {
		return models.CheckResult{Detail: models.TamperingDetail{AnomalyBins: bins}}
	}
	return detected(models.CheckTampering, models.TamperingDetail{AnomalyBins: bins})
}

// AnomalyBins normalizes hist to unit sum and returns the interior bins
// 1..254 that differ from their left neighbour by more than the delta.
func AnomalyBins(hist [256]float64) []int {
	total := 0.0
	for _, v := range hist {
		total += v
	}
	bins := []int{}
	if total == 0 {
		return bins
	}
	for i := 1; i < len(hist)-1; i++ {
		if math.Abs(hist[i]/total-hist[i-1]/total) > histogramDelta {
			bins = append(bins, i)
		}
	}
	return bins
}
