package gait

import (
	"image"

	"github.com/pkg/errors"
)

// ProcessedKeypoints is the output of the environmental-robustness
// pipeline: metric, jitter-free, ground-consistent keypoints plus the
// calibration and contact provenance needed for audit.
type ProcessedKeypoints struct {
	Keypoints    KeypointSequence
	Scale        ScaleState
	GroundPlaneZ float64
	ContactFlags ContactFlags
}

// EnvironmentalRobustness composes scale calibration, Kalman denoising
// and foot-contact constraint enforcement into one call. Construct a
// fresh instance per analysis: calibration and ground-plane state are
// per-run.
type EnvironmentalRobustness struct {
	cfg        AnalyzerConfig
	calibrator *ScaleCalibrator
	denoiser   *KalmanDenoiser
	contact    *FootContactConstraint
}

// NewEnvironmentalRobustness builds the per-run robustness pipeline.
func NewEnvironmentalRobustness(cfg AnalyzerConfig) *EnvironmentalRobustness {
	return &EnvironmentalRobustness{
		cfg:        cfg,
		calibrator: NewScaleCalibrator(cfg.ReferenceLengthMM, cfg.SubjectHeightMM),
		denoiser:   NewKalmanDenoiser(cfg.ProcessNoise, cfg.MeasurementNoise),
		contact:    NewFootContactConstraint(cfg),
	}
}

// ProcessKeypoints converts raw keypoints to metric units (when a
// reference frame or anthropometric fallback yields a scale), smooths
// every joint trajectory and removes foot-skate drift. The input is
// never mutated. Calibration failure is not an error; the output's
// ScaleState records it and distances stay in the native unit.
func (r *EnvironmentalRobustness) ProcessKeypoints(
	keypoints KeypointSequence,
	confidence ConfidenceSequence,
	referenceFrame image.Image,
) (*ProcessedKeypoints, error) {
	if err := ValidateShape(keypoints, confidence); err != nil {
		return nil, err
	}

	if referenceFrame != nil {
		r.calibrator.CalibrateFromFrame(referenceFrame)
	}
	if !r.calibrator.State().Calibrated() {
		r.calibrator.CalibrateFromAnthropometry(keypoints)
	}
	scaled := r.calibrator.ApplyScale(keypoints)

	denoised, err := r.denoiser.Denoise(scaled, confidence)
	if err != nil {
		return nil, errors.Wrap(err, "denoise keypoint sequence")
	}

	constrained, flags := r.contact.Constrain(denoised)

	return &ProcessedKeypoints{
		Keypoints:    constrained,
		Scale:        r.calibrator.State(),
		GroundPlaneZ: r.contact.GroundPlaneZ(constrained),
		ContactFlags: flags,
	}, nil
}
