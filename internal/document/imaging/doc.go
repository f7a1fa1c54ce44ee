// Package imaging implements the numeric image primitives used by the
// document checks: luminance conversion, separable smoothing, derivative
// operators, Canny edges, adaptive thresholding, external contour tracing,
// polygon approximation, histograms and a probabilistic Hough transform.
//
// Every function allocates its output; inputs are never modified.
package imaging
