// Package config loads optional JSON tuning files that override the
// built-in analysis defaults. Fields are pointers so an absent key
// leaves the corresponding default untouched.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stridelab/gait.report/internal/gait"
)

// TuningConfig is the on-disk tuning schema. Every field maps onto one
// AnalyzerConfig or QualityConfig tunable.
type TuningConfig struct {
	// Pipeline params
	FrameRate          *float64 `json:"frame_rate,omitempty"`
	ReferenceLengthMM  *float64 `json:"reference_length_mm,omitempty"`
	SubjectHeightMM    *float64 `json:"subject_height_mm,omitempty"`
	ProcessNoise       *float64 `json:"process_noise,omitempty"`
	MeasurementNoise   *float64 `json:"measurement_noise,omitempty"`
	GroundPercentile   *float64 `json:"ground_percentile,omitempty"`
	ContactVelocityMax *float64 `json:"contact_velocity_max,omitempty"`
	ContactHeightMax   *float64 `json:"contact_height_max,omitempty"`
	HeelStrikeSpacing  *float64 `json:"heel_strike_spacing_s,omitempty"`
	ToeOffSpacing      *float64 `json:"toe_off_spacing_s,omitempty"`
	ProceedOnGateFail  *bool    `json:"proceed_on_gate_fail,omitempty"`

	// Quality gate params
	MinFrameCount      *int     `json:"min_frame_count,omitempty"`
	MinJointConfidence *float64 `json:"min_joint_confidence,omitempty"`
	LowConfidenceRatio *float64 `json:"low_confidence_ratio,omitempty"`
	MaxMissingJoints   *int     `json:"max_missing_joints,omitempty"`
	BoneLengthMaxCV    *float64 `json:"bone_length_max_cv,omitempty"`
	GroundToleranceMM  *float64 `json:"ground_tolerance_mm,omitempty"`
	MaxViolations      *int     `json:"max_violations,omitempty"`
	MaxJointSpeed      *float64 `json:"max_joint_speed,omitempty"`
	MaxFastMotionRatio *float64 `json:"max_fast_motion_ratio,omitempty"`
}

// Load reads a tuning file. A missing path is not an error; it returns
// an empty config overriding nothing.
func Load(path string) (*TuningConfig, error) {
	if path == "" {
		return &TuningConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TuningConfig{}, nil
		}
		return nil, fmt.Errorf("read tuning file %s: %w", path, err)
	}
	var tc TuningConfig
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return &tc, nil
}

// ApplyTo overlays the set fields onto an analyzer configuration.
func (tc *TuningConfig) ApplyTo(cfg *gait.AnalyzerConfig) {
	if tc.FrameRate != nil {
		cfg.FrameRate = *tc.FrameRate
	}
	if tc.ReferenceLengthMM != nil {
		cfg.ReferenceLengthMM = *tc.ReferenceLengthMM
	}
	if tc.SubjectHeightMM != nil {
		cfg.SubjectHeightMM = *tc.SubjectHeightMM
	}
	if tc.ProcessNoise != nil {
		cfg.ProcessNoise = *tc.ProcessNoise
	}
	if tc.MeasurementNoise != nil {
		cfg.MeasurementNoise = *tc.MeasurementNoise
	}
	if tc.GroundPercentile != nil {
		cfg.GroundPercentile = *tc.GroundPercentile
	}
	if tc.ContactVelocityMax != nil {
		cfg.ContactVelocityMax = *tc.ContactVelocityMax
	}
	if tc.ContactHeightMax != nil {
		cfg.ContactHeightMax = *tc.ContactHeightMax
	}
	if tc.HeelStrikeSpacing != nil {
		cfg.HeelStrikeSpacing = *tc.HeelStrikeSpacing
	}
	if tc.ToeOffSpacing != nil {
		cfg.ToeOffSpacing = *tc.ToeOffSpacing
	}
	if tc.ProceedOnGateFail != nil {
		cfg.ProceedOnGateFail = *tc.ProceedOnGateFail
	}

	if tc.MinFrameCount != nil {
		cfg.Quality.MinFrameCount = *tc.MinFrameCount
	}
	if tc.MinJointConfidence != nil {
		cfg.Quality.MinJointConfidence = *tc.MinJointConfidence
	}
	if tc.LowConfidenceRatio != nil {
		cfg.Quality.LowConfidenceRatio = *tc.LowConfidenceRatio
	}
	if tc.MaxMissingJoints != nil {
		cfg.Quality.MaxMissingJoints = *tc.MaxMissingJoints
	}
	if tc.BoneLengthMaxCV != nil {
		cfg.Quality.BoneLengthMaxCV = *tc.BoneLengthMaxCV
	}
	if tc.GroundToleranceMM != nil {
		cfg.Quality.GroundToleranceMM = *tc.GroundToleranceMM
	}
	if tc.MaxViolations != nil {
		cfg.Quality.MaxViolations = *tc.MaxViolations
	}
	if tc.MaxJointSpeed != nil {
		cfg.Quality.MaxJointSpeed = *tc.MaxJointSpeed
	}
	if tc.MaxFastMotionRatio != nil {
		cfg.Quality.MaxFastMotionRatio = *tc.MaxFastMotionRatio
	}
}
