package checks

import (
	"image"

	"docverify/internal/document/imaging"
	"docverify/internal/document/models"
)

const (
	cannyLow  = 50
	cannyHigh = 150
	// Polygon tolerance as a share of the contour perimeter.
	approxTolerance = 0.02
)

// Edges looks for a quadrilateral document outline. The largest external
// contour of the smoothed edge map is simplified to a polygon; four
// vertices count as a detected document.
func Edges(g *image.Gray) models.CheckResult {
	edges := imaging.Canny(imaging.GaussianBlur5(g), cannyLow, cannyHigh)
	contours := imaging.FindExternalContours(edges)
	if len(contours) == 0 {
		return models.NotDetected(models.CheckEdges)
	}

	largest, largestArea := contours[0], imaging.ContourArea(contours[0])
	for _, c := range contours[1:] {
		if area := imaging.ContourArea(c); area > largestArea {
			largest, largestArea = c, area
		}
	}

	poly := imaging.ApproxPolyClosed(largest, approxTolerance*imaging.ArcLength(largest, true))
	if len(poly) != 4 {
		return models.NotDetected(models.CheckEdges)
	}

	corners := make([]models.Point, len(poly))
	for i, p := range poly {
		corners[i] = models.Point{X: p.X, Y: p.Y}
	}
	return detected(models.CheckEdges, models.EdgeDetail{Corners: corners})
}
