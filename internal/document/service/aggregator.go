package service

import (
	"fmt"
	"math"

	"docverify/internal/document/models"
)

// DefaultThreshold is the minimum aggregated confidence for an authentic
// verdict.
const DefaultThreshold = 0.7

// CheckOutcome pairs a check with its result, in profile order.
type CheckOutcome struct {
	Name   models.CheckName
	Result models.CheckResult
}

// Aggregator reduces the executed checks to one confidence in [0, 1].
type Aggregator interface {
	Aggregate(outcomes []CheckOutcome) float64
}

// MeanAggregator weighs every executed check equally. No checks yields 0.
type MeanAggregator struct{}

func (MeanAggregator) Aggregate(outcomes []CheckOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o.Result.Confidence
	}
	return sum / float64(len(outcomes))
}

// WeightedAggregator computes a weighted mean. Checks without a weight count
// as 1; a zero total weight yields 0.
type WeightedAggregator struct {
	Weights map[models.CheckName]float64
}

func (a WeightedAggregator) Aggregate(outcomes []CheckOutcome) float64 {
	var sum, total float64
	for _, o := range outcomes {
		w, ok := a.Weights[o.Name]
		if !ok {
			w = 1
		}
		sum += w * o.Result.Confidence
		total += w
	}
	if total <= 0 {
		return 0
	}
	return sum / total
}

// DefaultWeights favours the geometric and zone checks over the global
// statistics.
var DefaultWeights = map[models.CheckName]float64{
	models.CheckEdges:            1.5,
	models.CheckWatermarks:       1,
	models.CheckTampering:        0.5,
	models.CheckHologram:         1,
	models.CheckSecurityFeatures: 1,
	models.CheckMRZ:              1.5,
}

// NewAggregator returns the strategy registered under name.
func NewAggregator(name string) (Aggregator, error) {
	switch name {
	case "", "mean":
		return MeanAggregator{}, nil
	case "weighted":
		return WeightedAggregator{Weights: DefaultWeights}, nil
	default:
		return nil, fmt.Errorf("unknown aggregation strategy %q", name)
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
