package gait

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCleanWalk(t *testing.T) {
	seq, conf := GenerateWalk(DefaultWalkConfig())
	a := NewAnalyzer(DefaultAnalyzerConfig())

	result, err := a.Analyze(context.Background(), AnalysisInput{Keypoints: seq, Confidence: conf})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, QualityPass, result.Assessment.OverallQuality)
	assert.True(t, result.Assessment.CanProceed)

	// With no reference frame the anthropometric fallback calibrates.
	scale := result.Provenance.Scale
	assert.Equal(t, CalibrationAnthropometric, scale.Method)
	assert.True(t, scale.Calibrated())
	assert.InDelta(t, 1.0, scale.ScaleFactor, 0.1, "anatomically sized body calibrates near unity")

	// Event frames survive scaling, denoising and the stance clamp: the
	// vertical channel is never filtered and each clamped stance plateau
	// yields its midpoint strike.
	if diff := cmp.Diff([]int{12, 57}, result.Provenance.Events.LeftHeelStrikes); diff != "" {
		t.Errorf("left heel strikes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{34, 79}, result.Provenance.Events.RightHeelStrikes); diff != "" {
		t.Errorf("right heel strikes (-want +got):\n%s", diff)
	}

	// The planted stance phases register as foot contact, and contact
	// only ever fires near a stance (within a few frames of that foot's
	// detected strike or toe off).
	for foot := FootLeft; foot <= FootRight; foot++ {
		grounded := 0
		for i := range result.Provenance.ContactFlags {
			if !result.Provenance.ContactFlags[i][foot] {
				continue
			}
			grounded++
			if !nearEvent(i, result.Provenance.Events, foot, 4) {
				t.Errorf("foot %d: contact at frame %d far from any stance", foot, i)
			}
		}
		if grounded == 0 {
			t.Errorf("foot %d: planted stances produced no contact flags", foot)
		}
	}

	m := result.Metrics
	assert.InDelta(t, 80.0, m.CadenceStepsPerMin, 1e-6, "cadence")
	assert.Zero(t, m.StrideVariabilityCV, "stride variability sentinel")
	wantSpeed := 1200 * scale.ScaleFactor
	assert.InDelta(t, wantSpeed, m.GaitSpeedMMPerS, wantSpeed*0.01, "gait speed in mm")
	assert.Empty(t, m.DataQualityFlags)

	assert.NotEqual(t, uuid.Nil, result.Provenance.RunID)
	assert.Len(t, result.Provenance.ContactFlags, len(seq))
}

func TestAnalyzeWithReferenceFrame(t *testing.T) {
	seq, conf := GenerateWalk(DefaultWalkConfig())
	a := NewAnalyzer(DefaultAnalyzerConfig())

	result, err := a.Analyze(context.Background(), AnalysisInput{
		Keypoints:      seq,
		Confidence:     conf,
		ReferenceFrame: sheetFrame(400, 400, 50, 60, 105, 149),
	})
	require.NoError(t, err)

	scale := result.Provenance.Scale
	assert.Equal(t, CalibrationReference, scale.Method)
	assert.InDelta(t, 297.0/149.0, scale.ScaleFactor, 0.05)
}

func TestAnalyzeGateRefusesShortCapture(t *testing.T) {
	seq, conf := walkOfLength(10)
	a := NewAnalyzer(DefaultAnalyzerConfig())

	result, err := a.Analyze(context.Background(), AnalysisInput{Keypoints: seq, Confidence: conf})
	require.Error(t, err)
	assert.Nil(t, result)

	var gateErr *GateError
	require.True(t, errors.As(err, &gateErr), "want *GateError, got %T", err)
	if !strings.Contains(gateErr.Message, CheckFrameCount) {
		t.Errorf("gate message does not name the failing check: %q", gateErr.Message)
	}
}

func TestAnalyzeProceedsPastGateWhenConfigured(t *testing.T) {
	seq, conf := walkOfLength(10)
	cfg := DefaultAnalyzerConfig()
	cfg.ProceedOnGateFail = true
	a := NewAnalyzer(cfg)

	result, err := a.Analyze(context.Background(), AnalysisInput{Keypoints: seq, Confidence: conf})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, QualityFail, result.Assessment.OverallQuality)
	assert.False(t, result.Assessment.CanProceed)
	assert.Contains(t, result.Metrics.DataQualityFlags, FlagInsufficientGaitCycles)
}

func TestAnalyzeShapeErrors(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())

	_, err := a.Analyze(context.Background(), AnalysisInput{})
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr), "empty input: want *ShapeError, got %T", err)

	seq, _ := walkOfLength(90)
	_, err = a.Analyze(context.Background(), AnalysisInput{
		Keypoints:  seq,
		Confidence: UniformConfidence(89, 1.0),
	})
	require.True(t, errors.As(err, &shapeErr), "mismatched confidence: want *ShapeError, got %T", err)
}

func TestAnalyzeHonoursCancelledContext(t *testing.T) {
	seq, conf := walkOfLength(90)
	a := NewAnalyzer(DefaultAnalyzerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, AnalysisInput{Keypoints: seq, Confidence: conf})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeFrameRateOverride(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.FrameRate = 60
	cfg.Frames = 180
	cfg.StridePeriod = 90
	cfg.PhaseOffset = 20
	seq, conf := GenerateWalk(cfg)

	a := NewAnalyzer(DefaultAnalyzerConfig()) // configured for 30 fps
	result, err := a.Analyze(context.Background(), AnalysisInput{
		Keypoints:  seq,
		Confidence: conf,
		FrameRate:  60,
	})
	require.NoError(t, err)

	// Same walk recorded at twice the rate must report the same cadence.
	assert.InDelta(t, 80.0, result.Metrics.CadenceStepsPerMin, 1e-6)
}

func TestProcessKeypointsUncalibratedPassthrough(t *testing.T) {
	seq, conf := walkOfLength(40)
	for i := range seq {
		seq[i][JointNose] = Vec3{} // defeat the anthropometric fallback
	}

	r := NewEnvironmentalRobustness(DefaultAnalyzerConfig())
	processed, err := r.ProcessKeypoints(seq, conf, nil)
	require.NoError(t, err)

	assert.Equal(t, CalibrationNone, processed.Scale.Method)
	assert.False(t, processed.Scale.Calibrated())
	// Hip positions survive unscaled (denoising tracks them closely).
	assert.InDelta(t, seq[20].HipCenter().X, processed.Keypoints[20].HipCenter().X, 1.0)
}

func TestAnalyzeFlagsUncalibratedUnits(t *testing.T) {
	seq, conf := walkOfLength(90)
	for i := range seq {
		seq[i][JointNose] = Vec3{}
	}
	a := NewAnalyzer(DefaultAnalyzerConfig())
	result, err := a.Analyze(context.Background(), AnalysisInput{Keypoints: seq, Confidence: conf})
	require.NoError(t, err)

	assert.Contains(t, result.Metrics.DataQualityFlags, FlagUncalibratedUnits)
	assert.Contains(t, result.Metrics.DataQualityFlags, FlagMissingJoints)
}

// nearEvent reports whether frame i is within dist frames of one of the
// foot's detected heel strikes or toe offs.
func nearEvent(i int, events GaitEventSet, foot, dist int) bool {
	for _, e := range events.HeelStrikes(foot) {
		if abs(i-e) <= dist {
			return true
		}
	}
	for _, e := range events.ToeOffs(foot) {
		if abs(i-e) <= dist {
			return true
		}
	}
	return false
}

func TestGateErrorMessage(t *testing.T) {
	err := &GateError{Message: "frame_count: insufficient frames: 10 < 30"}
	assert.Contains(t, err.Error(), "quality gate failed")
	assert.Contains(t, err.Error(), "frame_count")
}
