package checks

import (
	"image"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	adaptiveBlockSize = 11
	adaptiveC         = 2

	// Exclusive contour area band, in square pixels, for watermark marks.
	watermarkMinArea = 100
	watermarkMaxArea = 1000
)

// Watermarks binarizes g against its local illumination and reports every
// external contour whose area falls inside the watermark band.
func Watermarks(g *image.Gray) models.CheckResult {
	bin := imaging.AdaptiveThresholdInv(g, adaptiveBlockSize, adaptiveC)

	regions := []models.Region{}
	for _, c := range imaging.FindExternalContours(bin) {
		area := imaging.ContourArea(c)
		if area <= watermarkMinArea || area >= watermarkMaxArea {
			continue
		}
		r := imaging.BoundingRect(c)
		regions = append(regions, models.Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()})
	}

	if len(regions) == 0 {
		return models.NotDetected(models.CheckWatermarks)
	}
	return detected(models.CheckWatermarks, models.WatermarkDetail{Regions: regions})
}
