package gait

// Default thresholds for the analysis pipeline. Every tunable lives here
// or on a config struct; the stage implementations carry no inline
// magic numbers.
const (
	// DefaultFrameRate is assumed when the capture rate is unknown (fps).
	DefaultFrameRate = 30.0
	// DefaultReferenceLengthMM is the long edge of an A4 sheet, the
	// default planar reference object for scale calibration.
	DefaultReferenceLengthMM = 297.0
	// DefaultProcessNoise scales the Kalman process-noise diagonal.
	DefaultProcessNoise = 0.01
	// DefaultMeasurementNoise is the base measurement-noise diagonal,
	// divided by per-joint confidence during filtering.
	DefaultMeasurementNoise = 0.1
	// DefaultInitialCovariance is the diagonal of P at filter reset.
	DefaultInitialCovariance = 100.0
	// DefaultGroundPercentile of all ankle heights estimates the floor.
	DefaultGroundPercentile = 0.05
	// DefaultContactVelocityMax is the ankle speed (units/s) below which
	// a foot may be considered grounded.
	DefaultContactVelocityMax = 50.0
	// DefaultContactHeightMax is the maximum ankle height above the
	// ground plane (mm) for a grounded foot.
	DefaultContactHeightMax = 20.0
	// DefaultHeelStrikeSpacing is the minimum spacing between detected
	// heel strikes, as a fraction of one second of frames.
	DefaultHeelStrikeSpacing = 0.5
	// DefaultToeOffSpacing is the minimum spacing between detected toe
	// offs, as a fraction of one second of frames.
	DefaultToeOffSpacing = 0.3
	// DefaultHeadToAnkleMM is the population-average head-to-ankle
	// distance used by anthropometric calibration.
	DefaultHeadToAnkleMM = 1500.0
	// HeadToAnkleHeightRatio converts a known standing height to the
	// head-to-ankle distance used for calibration.
	HeadToAnkleHeightRatio = 0.85
)

// AnalyzerConfig holds every tunable of the sequence-to-metrics
// transformation. The zero value is not usable; start from
// DefaultAnalyzerConfig and override fields as needed.
type AnalyzerConfig struct {
	FrameRate          float64 // Capture rate (fps)
	ReferenceLengthMM  float64 // Real-world long edge of the reference object (mm)
	SubjectHeightMM    float64 // Known subject height for anthropometric calibration (0 = unknown)
	ProcessNoise       float64 // Kalman process-noise coefficient
	MeasurementNoise   float64 // Kalman base measurement noise, scaled by 1/confidence
	GroundPercentile   float64 // Ankle-height percentile taken as the floor
	ContactVelocityMax float64 // Max grounded ankle speed (units/s)
	ContactHeightMax   float64 // Max grounded ankle height above floor (mm)
	HeelStrikeSpacing  float64 // Min heel-strike spacing (seconds)
	ToeOffSpacing      float64 // Min toe-off spacing (seconds)
	ProceedOnGateFail  bool    // Continue past a failed pre-flight gate

	Quality QualityConfig // Thresholds shared by the gate and the report
}

// QualityConfig holds the thresholds of the five quality checks. The
// pre-flight gate and the post-hoc assessment both read from the same
// instance so they can never diverge.
type QualityConfig struct {
	MinFrameCount       int     // FAIL below this, WARNING up to twice it
	MinJointConfidence  float64 // FAIL when mean confidence is below
	LowConfidenceRatio  float64 // WARNING when this share of frames dips below
	MaxMissingJoints    int     // FAIL when one frame misses more than this
	BoneLengthMaxCV     float64 // Bone-length coefficient of variation cap
	GroundToleranceMM   float64 // Allowed penetration below the floor (mm)
	MaxViolations       int     // Anatomical violations tolerated before FAIL
	MaxJointSpeed       float64 // Per-frame joint displacement cap (units)
	MaxFastMotionRatio  float64 // WARNING when this share of transitions exceed the cap
}

// DefaultAnalyzerConfig returns the configuration used for clinical
// gait captures: 30 fps, A4 reference sheet, thresholds matched to
// millimetre-scale keypoints.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		FrameRate:          DefaultFrameRate,
		ReferenceLengthMM:  DefaultReferenceLengthMM,
		ProcessNoise:       DefaultProcessNoise,
		MeasurementNoise:   DefaultMeasurementNoise,
		GroundPercentile:   DefaultGroundPercentile,
		ContactVelocityMax: DefaultContactVelocityMax,
		ContactHeightMax:   DefaultContactHeightMax,
		HeelStrikeSpacing:  DefaultHeelStrikeSpacing,
		ToeOffSpacing:      DefaultToeOffSpacing,
		Quality:            DefaultQualityConfig(),
	}
}

// DefaultQualityConfig returns the check thresholds: 30-frame minimum,
// 0.8 confidence floor, 5 missing joints per frame, 10% bone-length
// variation, 50 mm ground tolerance, 100 units/frame speed cap.
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinFrameCount:      30,
		MinJointConfidence: 0.8,
		LowConfidenceRatio: 0.2,
		MaxMissingJoints:   5,
		BoneLengthMaxCV:    0.1,
		GroundToleranceMM:  50.0,
		MaxViolations:      5,
		MaxJointSpeed:      100.0,
		MaxFastMotionRatio: 0.05,
	}
}
