// Package checks implements the training-free image heuristics that make up
// a document verification. Every check is a pure function over a grayscale
// plane; none of them keeps state between calls.
package checks

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"docverify/internal/document/models"
)

// Func is a single heuristic over a grayscale document image.
type Func func(g *image.Gray) models.CheckResult

// confidence holds the fixed score each check reports when it fires. It is
// read concurrently by parallel checks and never written after init.
var confidence = map[models.CheckName]float64{
	models.CheckEdges:            0.9,
	models.CheckWatermarks:       0.8,
	models.CheckTampering:        0.7,
	models.CheckHologram:         0.7,
	models.CheckSecurityFeatures: 0.75,
	models.CheckMRZ:              0.8,
}

var registry = map[models.CheckName]Func{
	models.CheckEdges:            Edges,
	models.CheckWatermarks:       Watermarks,
	models.CheckTampering:        Tampering,
	models.CheckHologram:         Hologram,
	models.CheckSecurityFeatures: SecurityFeatures,
	models.CheckMRZ:              MRZ,
}

// ErrUnknownCheck is returned by Lookup for names without an implementation.
var ErrUnknownCheck = errors.New("unknown check")

// ErrEmptyImage marks a check that was handed nothing to analyse.
var ErrEmptyImage = errors.New("empty image")

// Lookup returns the implementation registered under name.
func Lookup(name models.CheckName) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
	}
	return fn, nil
}

// ConfidenceFor returns the score name reports when it fires, or 0 for an
// unknown check.
func ConfidenceFor(name models.CheckName) float64 {
	return confidence[name]
}

// detected builds the positive result for name.
func detected(name models.CheckName, detail models.Detail) models.CheckResult {
	return models.CheckResult{Detected: true, Confidence: ConfidenceFor(name), Detail: detail}
}

// Run executes the named check against g. A check never fails the caller:
// an unknown name, an empty plane or a panic inside the heuristic all yield
// the canonical not-detected result, reported through degraded.
func Run(ctx context.Context, logger *slog.Logger, name models.CheckName, g *image.Gray) (models.CheckResult, bool) {
	fn, err := Lookup(name)
	if err != nil {
		warn(ctx, logger, name, err)
		return models.NotDetected(name), true
	}
	return guard(ctx, logger, name, fn, g)
}

func guard(ctx context.Context, logger *slog.Logger, name models.CheckName, fn Func, g *image.Gray) (result models.CheckResult, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			warn(ctx, logger, name, fmt.Errorf("panic: %v", r))
			result, degraded = models.NotDetected(name), true
		}
	}()

	if g == nil || g.Rect.Empty() {
		warn(ctx, logger, name, ErrEmptyImage)
		return models.NotDetected(name), true
	}
	return fn(g), false
}

func warn(ctx context.Context, logger *slog.Logger, name models.CheckName, err error) {
	if logger == nil {
		return
	}
	logger.WarnContext(ctx, "check degraded to not detected",
		"check", string(name),
		"error", err,
	)
}
