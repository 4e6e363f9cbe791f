package gait

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDenoiseShapeMismatch(t *testing.T) {
	keypoints, _ := GenerateWalk(DefaultWalkConfig())
	confidence := UniformConfidence(len(keypoints)-1, 1.0)

	d := NewKalmanDenoiser(0, 0)
	_, err := d.Denoise(keypoints, confidence)
	if err == nil {
		t.Fatal("expected shape error for mismatched confidence length")
	}
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected *ShapeError, got %T: %v", err, err)
	}
}

func TestDenoiseEmptySequence(t *testing.T) {
	d := NewKalmanDenoiser(0, 0)
	if _, err := d.Denoise(nil, nil); err == nil {
		t.Fatal("expected error for empty sequence")
	}
}

func TestDenoiseDeterministic(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.NoiseStdMM = 5
	keypoints, confidence := GenerateWalk(cfg)

	out1, err := NewKalmanDenoiser(0, 0).Denoise(keypoints, confidence)
	if err != nil {
		t.Fatalf("first denoise: %v", err)
	}
	out2, err := NewKalmanDenoiser(0, 0).Denoise(keypoints, confidence)
	if err != nil {
		t.Fatalf("second denoise: %v", err)
	}
	if diff := cmp.Diff(out1, out2); diff != "" {
		t.Errorf("denoised output not reproducible (-first +second):\n%s", diff)
	}
}

// A noiseless constant-velocity trajectory matches the filter's motion
// model exactly, so after the initial transient the filter must
// reproduce its input.
func TestDenoisePreservesCleanTrajectory(t *testing.T) {
	const frames = 60
	keypoints := make(KeypointSequence, frames)
	for i := 0; i < frames; i++ {
		for j := 0; j < NumJoints; j++ {
			keypoints[i][j] = Vec3{
				X: 100 + 10*float64(i) + float64(j),
				Y: 50 + 5*float64(i),
				Z: float64(j),
			}
		}
	}
	confidence := UniformConfidence(frames, 1.0)

	out, err := NewKalmanDenoiser(0, 0).Denoise(keypoints, confidence)
	if err != nil {
		t.Fatalf("denoise: %v", err)
	}
	if len(out) != frames {
		t.Fatalf("output has %d frames, want %d", len(out), frames)
	}

	const transient = 5
	const tolerance = 0.5
	for i := transient; i < frames; i++ {
		for j := 0; j < NumJoints; j++ {
			dx := math.Abs(out[i][j].X - keypoints[i][j].X)
			dy := math.Abs(out[i][j].Y - keypoints[i][j].Y)
			if dx > tolerance || dy > tolerance {
				t.Fatalf("frame %d joint %d distorted: got (%.3f, %.3f), want (%.3f, %.3f)",
					i, j, out[i][j].X, out[i][j].Y, keypoints[i][j].X, keypoints[i][j].Y)
			}
		}
	}
}

func TestDenoiseDepthPassthrough(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.NoiseStdMM = 3
	keypoints, confidence := GenerateWalk(cfg)

	out, err := NewKalmanDenoiser(0, 0).Denoise(keypoints, confidence)
	if err != nil {
		t.Fatalf("denoise: %v", err)
	}
	for i := range keypoints {
		for j := 0; j < NumJoints; j++ {
			if out[i][j].Z != keypoints[i][j].Z {
				t.Fatalf("frame %d joint %d: z filtered (%.6f != %.6f)", i, j, out[i][j].Z, keypoints[i][j].Z)
			}
		}
	}
}

// Low confidence inflates the measurement noise, so an outlier spike is
// damped harder than it would be at full confidence.
func TestDenoiseLowConfidenceDampsOutliers(t *testing.T) {
	const frames = 40
	const spikeFrame = 30
	base := make(KeypointSequence, frames)
	for i := range base {
		for j := 0; j < NumJoints; j++ {
			base[i][j] = Vec3{X: float64(i), Y: 0, Z: 0}
		}
	}
	base[spikeFrame][JointNose].X += 50 // single-frame glitch

	full := UniformConfidence(frames, 1.0)
	low := UniformConfidence(frames, 1.0)
	low[spikeFrame][JointNose] = 0.1

	outFull, err := NewKalmanDenoiser(0, 0).Denoise(base, full)
	if err != nil {
		t.Fatalf("denoise full confidence: %v", err)
	}
	outLow, err := NewKalmanDenoiser(0, 0).Denoise(base, low)
	if err != nil {
		t.Fatalf("denoise low confidence: %v", err)
	}

	truth := float64(spikeFrame)
	errFull := math.Abs(outFull[spikeFrame][JointNose].X - truth)
	errLow := math.Abs(outLow[spikeFrame][JointNose].X - truth)
	if errLow >= errFull {
		t.Errorf("low-confidence spike not damped harder: low=%.3f full=%.3f", errLow, errFull)
	}
}
