package gait

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/stridelab/gait.report/internal/monitoring"
)

// AnalysisInput is everything one analysis run consumes from the
// upstream pose/lifting stage.
type AnalysisInput struct {
	Keypoints  KeypointSequence
	Confidence ConfidenceSequence
	// ReferenceFrame is an optional single frame used to locate the
	// scale-calibration reference object.
	ReferenceFrame image.Image
	// ReferenceLengthMM overrides the real-world reference length when
	// positive.
	ReferenceLengthMM float64
	// FrameRate overrides the configured capture rate when positive.
	FrameRate float64
}

// Provenance is the auxiliary audit record attached to every result.
type Provenance struct {
	RunID        uuid.UUID
	Scale        ScaleState
	GroundPlaneZ float64
	ContactFlags ContactFlags
	Events       GaitEventSet
}

// AnalysisResult is the complete output of one sequence-to-metrics
// transformation, accepted or discarded as a whole.
type AnalysisResult struct {
	Metrics    GaitMetrics
	Assessment QualityAssessment
	Provenance Provenance
}

// GateError reports that the pre-flight quality gate refused the input.
// The gate is advisory at the data layer; callers that want to proceed
// with caveats set AnalyzerConfig.ProceedOnGateFail instead.
type GateError struct {
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("quality gate failed: %s", e.Message)
}

// Analyzer runs the whole pipeline: gate, calibrate, denoise, constrain,
// detect events, derive biomarkers, assess. One throwaway instance per
// analysis; instances share no state and are not safe for reuse across
// runs.
type Analyzer struct {
	cfg     AnalyzerConfig
	quality *QualityGateService
}

// NewAnalyzer builds an analyzer for one run.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	return &Analyzer{cfg: cfg, quality: NewQualityGateService(cfg.Quality)}
}

// Analyze performs the atomic sequence-to-metrics transformation.
// Structural input problems return a *ShapeError; a refused gate
// returns a *GateError (unless configured to proceed). Low-quality data
// never errors: it degrades into sentinel metrics and quality flags.
// The context is checked between stages so an abandoned request stops
// early; there are no partial-completion checkpoints.
func (a *Analyzer) Analyze(ctx context.Context, in AnalysisInput) (*AnalysisResult, error) {
	if err := ValidateShape(in.Keypoints, in.Confidence); err != nil {
		return nil, err
	}

	cfg := a.cfg
	if in.FrameRate > 0 {
		cfg.FrameRate = in.FrameRate
	}
	if in.ReferenceLengthMM > 0 {
		cfg.ReferenceLengthMM = in.ReferenceLengthMM
	}

	runID := uuid.New()
	monitoring.Logf("gait: run %s: %d frames at %.1f fps", runID, len(in.Keypoints), cfg.FrameRate)

	// Pre-flight gate on the raw input, before the expensive stages.
	if ok, msg := a.quality.GateAnalysis(in.Keypoints, in.Confidence); !ok {
		if !cfg.ProceedOnGateFail {
			return nil, &GateError{Message: msg}
		}
		monitoring.Logf("gait: run %s: proceeding past failed gate: %s", runID, msg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	robustness := NewEnvironmentalRobustness(cfg)
	processed, err := robustness.ProcessKeypoints(in.Keypoints, in.Confidence, in.ReferenceFrame)
	if err != nil {
		return nil, errors.Wrap(err, "environmental robustness pipeline")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := DetectGaitEvents(processed.Keypoints, cfg)
	calculator := NewGaitMetricsCalculator(cfg.FrameRate)
	metrics := calculator.Calculate(processed.Keypoints, in.Confidence, events, processed.GroundPlaneZ)
	if !processed.Scale.Calibrated() {
		metrics.DataQualityFlags = append(metrics.DataQualityFlags, FlagUncalibratedUnits)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Post-hoc assessment of the processed sequence for the final report.
	assessment := a.quality.AssessQuality(processed.Keypoints, in.Confidence)

	return &AnalysisResult{
		Metrics:    metrics,
		Assessment: assessment,
		Provenance: Provenance{
			RunID:        runID,
			Scale:        processed.Scale,
			GroundPlaneZ: processed.GroundPlaneZ,
			ContactFlags: processed.ContactFlags,
			Events:       events,
		},
	}, nil
}
