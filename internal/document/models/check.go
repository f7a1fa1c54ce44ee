package models

import (
	"encoding/json"
	"fmt"
)

// CheckName identifies one heuristic in the verification pipeline.
type CheckName string

const (
	CheckEdges            CheckName = "edges"
	CheckWatermarks       CheckName = "watermarks"
	CheckTampering        CheckName = "tampering"
	CheckHologram         CheckName = "hologram"
	CheckSecurityFeatures CheckName = "security_features"
	CheckMRZ              CheckName = "mrz"
)

// Point is a pixel coordinate with the origin at the top-left corner.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is an axis-aligned rectangle in pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detail is the check-specific payload attached to a CheckResult.
type Detail interface {
	check() CheckName
}

// EdgeDetail holds the document outline; Corners is nil unless exactly four
// vertices were found.
type EdgeDetail struct {
	Corners []Point `json:"corners"`
}

// WatermarkDetail lists the bounding boxes of watermark-sized contours.
type WatermarkDetail struct {
	Regions []Region `json:"regions"`
}

// TamperingDetail lists the histogram bins with anomalous jumps.
type TamperingDetail struct {
	AnomalyBins []int `json:"anomaly_bins"`
}

// HologramDetail reports the share of high-gradient pixels.
type HologramDetail struct {
	GradientRatio float64 `json:"gradient_ratio"`
}

// SecurityDetail reports the micro-texture and line-pattern scores.
type SecurityDetail struct {
	TextureScore   float64 `json:"texture_score"`
	GuillocheScore float64 `json:"guilloche_score"`
}

// MRZDetail reports the number of qualifying horizontal segments.
type MRZDetail struct {
	LineCount int `json:"line_count"`
}

func (EdgeDetail) check() CheckName      { return CheckEdges }
func (WatermarkDetail) check() CheckName { return CheckWatermarks }
func (TamperingDetail) check() CheckName { return CheckTampering }
func (HologramDetail) check() CheckName  { return CheckHologram }
func (SecurityDetail) check() CheckName  { return CheckSecurityFeatures }
func (MRZDetail) check() CheckName       { return CheckMRZ }

// CheckResult is the outcome of one check. Confidence is zero whenever
// Detected is false.
type CheckResult struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	Detail     Detail  `json:"extra"`
}

// EmptyDetail returns the canonical failure payload for a check.
func EmptyDetail(name CheckName) Detail {
	switch name {
	case CheckEdges:
		return EdgeDetail{}
	case CheckWatermarks:
		return WatermarkDetail{Regions: []Region{}}
	case CheckTampering:
		return TamperingDetail{AnomalyBins: []int{}}
	case CheckHologram:
		return HologramDetail{}
	case CheckSecurityFeatures:
		return SecurityDetail{}
	case CheckMRZ:
		return MRZDetail{}
	default:
		return nil
	}
}

// NotDetected is the canonical degraded result for a check.
func NotDetected(name CheckName) CheckResult {
	return CheckResult{Detail: EmptyDetail(name)}
}

type rawCheck struct {
	Detected   bool            `json:"detected"`
	Confidence float64         `json:"confidence"`
	Extra      json.RawMessage `json:"extra"`
}

func decodeCheck(name CheckName, data []byte) (CheckResult, error) {
	var raw rawCheck
	if err := json.Unmarshal(data, &raw); err != nil {
		return CheckResult{}, err
	}
	result := CheckResult{Detected: raw.Detected, Confidence: raw.Confidence}
	if len(raw.Extra) == 0 || string(raw.Extra) == "null" {
		result.Detail = EmptyDetail(name)
		return result, nil
	}

	var (
		detail Detail
		err    error
	)
	switch name {
	case CheckEdges:
		var d EdgeDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	case CheckWatermarks:
		var d WatermarkDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	case CheckTampering:
		var d TamperingDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	case CheckHologram:
		var d HologramDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	case CheckSecurityFeatures:
		var d SecurityDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	case CheckMRZ:
		var d MRZDetail
		err = json.Unmarshal(raw.Extra, &d)
		detail = d
	default:
		return CheckResult{}, fmt.Errorf("unknown check %q", name)
	}
	if err != nil {
		return CheckResult{}, fmt.Errorf("decode %s extra: %w", name, err)
	}
	result.Detail = detail
	return result, nil
}
