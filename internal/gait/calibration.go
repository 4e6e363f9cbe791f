package gait

import (
	"image"
	"math"

	"github.com/stridelab/gait.report/internal/monitoring"
)

// CalibrationMethod records how a scale factor was obtained.
type CalibrationMethod string

const (
	// CalibrationReference means a known planar reference object was
	// located in the reference frame.
	CalibrationReference CalibrationMethod = "reference_object"
	// CalibrationAnthropometric means the scale was derived from
	// population-average body proportions.
	CalibrationAnthropometric CalibrationMethod = "anthropometric"
	// CalibrationNone means no calibration succeeded and downstream
	// distances stay in the input's native unit.
	CalibrationNone CalibrationMethod = "none"
)

// ScaleState holds the pixel-to-millimetre conversion for one analysis
// run. It is mutated only by calibration and never shared across runs.
type ScaleState struct {
	ReferenceLengthPixels float64
	ReferenceLengthMM     float64
	ScaleFactor           float64 // mm per pixel; 0 means uncalibrated
	Method                CalibrationMethod
}

// Calibrated reports whether a usable scale factor has been derived.
func (s ScaleState) Calibrated() bool {
	return s.ScaleFactor > 0 && !math.IsInf(s.ScaleFactor, 0) && !math.IsNaN(s.ScaleFactor)
}

// ScaleCalibrator converts pixel-space keypoints to metric units. It
// first tries to locate a known planar reference object in a reference
// frame; failing that it falls back to anthropometric proportions.
// State persists only for the lifetime of one analysis run.
type ScaleCalibrator struct {
	state     ScaleState
	refLength float64 // Real-world long edge of the reference object (mm)
	heightMM  float64 // Known subject height, 0 if unknown
}

// NewScaleCalibrator builds a calibrator for one run. referenceLengthMM
// is the real-world long edge of the reference object (defaults to an
// A4 sheet); subjectHeightMM may be 0 when unknown.
func NewScaleCalibrator(referenceLengthMM, subjectHeightMM float64) *ScaleCalibrator {
	if referenceLengthMM <= 0 {
		referenceLengthMM = DefaultReferenceLengthMM
	}
	return &ScaleCalibrator{
		state:     ScaleState{ReferenceLengthMM: referenceLengthMM, Method: CalibrationNone},
		refLength: referenceLengthMM,
		heightMM:  subjectHeightMM,
	}
}

// State returns a copy of the current scale state.
func (c *ScaleCalibrator) State() ScaleState {
	return c.state
}

// CalibrateFromFrame searches referenceFrame for the reference object
// and, when found, derives the scale factor from its longest measured
// edge. Returns false when no acceptable object is present.
func (c *ScaleCalibrator) CalibrateFromFrame(referenceFrame image.Image) bool {
	widthPx, heightPx, ok := DetectReferenceObject(referenceFrame)
	if !ok {
		return false
	}
	longEdge := math.Max(widthPx, heightPx)
	c.CalibrateFromReference(longEdge, c.refLength)
	return true
}

// CalibrateFromReference derives the scale factor from a measured
// reference length in pixels and its known real-world length in mm.
func (c *ScaleCalibrator) CalibrateFromReference(referencePixels, referenceMM float64) {
	if referencePixels <= 0 {
		return
	}
	c.state = ScaleState{
		ReferenceLengthPixels: referencePixels,
		ReferenceLengthMM:     referenceMM,
		ScaleFactor:           referenceMM / referencePixels,
		Method:                CalibrationReference,
	}
	monitoring.Logf("gait: scale calibrated from reference object: %.4f mm/pixel", c.state.ScaleFactor)
}

// CalibrateFromAnthropometry estimates the scale factor from the
// subject's head-to-ankle pixel distance averaged across the sequence,
// assuming a population-average head-to-ankle length (or 85% of a
// supplied standing height). Returns false when the distance cannot be
// measured (missing joints throughout).
func (c *ScaleCalibrator) CalibrateFromAnthropometry(keypoints KeypointSequence) bool {
	var sum float64
	var n int
	for i := range keypoints {
		head := keypoints[i][JointNose]
		ankle := keypoints[i][JointRightAnkle]
		if jointMissing(head) || jointMissing(ankle) {
			continue
		}
		sum += head.Sub(ankle).Norm()
		n++
	}
	if n == 0 || sum <= 0 {
		return false
	}
	meanPixels := sum / float64(n)
	if meanPixels <= 0 {
		return false
	}

	headToAnkleMM := DefaultHeadToAnkleMM
	if c.heightMM > 0 {
		headToAnkleMM = c.heightMM * HeadToAnkleHeightRatio
	}
	c.state = ScaleState{
		ReferenceLengthPixels: meanPixels,
		ReferenceLengthMM:     headToAnkleMM,
		ScaleFactor:           headToAnkleMM / meanPixels,
		Method:                CalibrationAnthropometric,
	}
	monitoring.Logf("gait: anthropometric calibration: %.4f mm/pixel over %d frames", c.state.ScaleFactor, n)
	return true
}

// PixelToMM converts a pixel distance to millimetres. Uncalibrated
// calibrators pass the distance through unchanged.
func (c *ScaleCalibrator) PixelToMM(pixels float64) float64 {
	if !c.state.Calibrated() {
		return pixels
	}
	return pixels * c.state.ScaleFactor
}

// MMToPixel converts a millimetre distance back to pixels.
func (c *ScaleCalibrator) MMToPixel(mm float64) float64 {
	if !c.state.Calibrated() {
		return mm
	}
	return mm / c.state.ScaleFactor
}

// ApplyScale returns a copy of the sequence with every coordinate
// converted to millimetres. The input is returned unchanged (but still
// copied) when the calibrator never succeeded.
func (c *ScaleCalibrator) ApplyScale(keypoints KeypointSequence) KeypointSequence {
	out := keypoints.Clone()
	if !c.state.Calibrated() {
		return out
	}
	f := c.state.ScaleFactor
	for i := range out {
		for j := range out[i] {
			out[i][j] = out[i][j].Scale(f)
		}
	}
	return out
}
