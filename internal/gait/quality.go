package gait

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// QualityLevel is the verdict of one quality check or of a whole
// assessment.
type QualityLevel string

const (
	QualityPass    QualityLevel = "pass"
	QualityWarning QualityLevel = "warning"
	QualityFail    QualityLevel = "fail"
)

// Check names, in the order they are reported.
const (
	CheckFrameCount          = "frame_count"
	CheckJointConfidence     = "joint_confidence"
	CheckMissingJoints       = "missing_joints"
	CheckAnatomicConstraints = "anatomical_constraints"
	CheckTemporalConsistency = "temporal_consistency"
)

// CheckResult is the outcome of one quality check: a verdict, a
// human-readable message, and the numeric witness behind the verdict.
type CheckResult struct {
	Status  QualityLevel
	Message string
	Value   float64
}

// QualityAssessment is the full quality report for one invocation.
// Recomputed whole on every assessment, never partially updated.
type QualityAssessment struct {
	OverallQuality QualityLevel
	Checks         map[string]CheckResult
	CanProceed     bool
	Warnings       []string
}

// qualityCheck is one registered check. The gate and the post-hoc
// assessment both run the same registry, so they cannot diverge.
type qualityCheck struct {
	name string
	run  func(in checkInput) CheckResult
}

type checkInput struct {
	keypoints  KeypointSequence
	confidence ConfidenceSequence
	cfg        QualityConfig
}

// QualityGateService validates a keypoint sequence against the five
// quality checks. The same service instance answers both the fast
// pre-flight gate and the full post-hoc assessment.
type QualityGateService struct {
	cfg    QualityConfig
	checks []qualityCheck
}

// NewQualityGateService builds a gate with the given thresholds.
func NewQualityGateService(cfg QualityConfig) *QualityGateService {
	if cfg.MinFrameCount == 0 {
		cfg = DefaultQualityConfig()
	}
	return &QualityGateService{
		cfg: cfg,
		checks: []qualityCheck{
			{CheckFrameCount, checkFrameCount},
			{CheckJointConfidence, checkJointConfidence},
			{CheckMissingJoints, checkMissingJoints},
			{CheckAnatomicConstraints, checkAnatomicalConstraints},
			{CheckTemporalConsistency, checkTemporalConsistency},
		},
	}
}

// AssessQuality runs every registered check and aggregates: FAIL if any
// check fails, WARNING if any check warns, PASS otherwise.
func (s *QualityGateService) AssessQuality(keypoints KeypointSequence, confidence ConfidenceSequence) QualityAssessment {
	in := checkInput{keypoints: keypoints, confidence: confidence, cfg: s.cfg}

	results := make(map[string]CheckResult, len(s.checks))
	overall := QualityPass
	var warnings []string
	for _, c := range s.checks {
		r := c.run(in)
		results[c.name] = r
		switch r.Status {
		case QualityFail:
			overall = QualityFail
		case QualityWarning:
			if overall != QualityFail {
				overall = QualityWarning
			}
			warnings = append(warnings, c.name)
		}
	}
	sort.Strings(warnings)

	return QualityAssessment{
		OverallQuality: overall,
		Checks:         results,
		CanProceed:     overall != QualityFail,
		Warnings:       warnings,
	}
}

// GateAnalysis is the fast pre-flight entry point: it runs the same
// checks and returns whether the pipeline may proceed, with the failing
// checks' messages concatenated when it may not.
func (s *QualityGateService) GateAnalysis(keypoints KeypointSequence, confidence ConfidenceSequence) (bool, string) {
	assessment := s.AssessQuality(keypoints, confidence)
	if assessment.CanProceed {
		return true, ""
	}

	names := make([]string, 0, len(assessment.Checks))
	for name, r := range assessment.Checks {
		if r.Status == QualityFail {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fmt.Sprintf("%s: %s", name, assessment.Checks[name].Message))
	}
	return false, strings.Join(msgs, "; ")
}

// checkFrameCount fails below the minimum frame count and warns up to
// twice the minimum.
func checkFrameCount(in checkInput) CheckResult {
	n := len(in.keypoints)
	min := in.cfg.MinFrameCount
	switch {
	case n < min:
		return CheckResult{QualityFail, fmt.Sprintf("insufficient frames: %d < %d", n, min), float64(n)}
	case n <= 2*min:
		return CheckResult{QualityWarning, fmt.Sprintf("low frame count: %d", n), float64(n)}
	}
	return CheckResult{QualityPass, fmt.Sprintf("sufficient frames: %d", n), float64(n)}
}

// checkJointConfidence fails when mean confidence is below the floor
// and warns when too many frames dip below it.
func checkJointConfidence(in checkInput) CheckResult {
	if in.confidence == nil {
		return CheckResult{QualityWarning, "no confidence scores provided", 0}
	}
	var sum float64
	lowFrames := 0
	for i := range in.confidence {
		var frameSum float64
		for j := 0; j < NumJoints; j++ {
			frameSum += in.confidence[i][j]
		}
		frameMean := frameSum / NumJoints
		if frameMean < in.cfg.MinJointConfidence {
			lowFrames++
		}
		sum += frameSum
	}
	mean := sum / float64(len(in.confidence)*NumJoints)

	if mean < in.cfg.MinJointConfidence {
		return CheckResult{QualityFail,
			fmt.Sprintf("low average confidence: %.2f < %.2f", mean, in.cfg.MinJointConfidence), mean}
	}
	lowRatio := float64(lowFrames) / float64(len(in.confidence))
	if lowRatio > in.cfg.LowConfidenceRatio {
		return CheckResult{QualityWarning,
			fmt.Sprintf("high proportion of low-confidence frames: %.0f%%", lowRatio*100), mean}
	}
	return CheckResult{QualityPass, fmt.Sprintf("confidence acceptable: %.2f", mean), mean}
}

// checkMissingJoints fails when any frame misses more joints than the
// cap and warns when the per-frame average exceeds half the cap.
func checkMissingJoints(in checkInput) CheckResult {
	maxMissing := 0
	totalMissing := 0
	for i := range in.keypoints {
		missing := 0
		for j := 0; j < NumJoints; j++ {
			if jointMissing(in.keypoints[i][j]) {
				missing++
			}
		}
		totalMissing += missing
		if missing > maxMissing {
			maxMissing = missing
		}
	}
	avgMissing := float64(totalMissing) / float64(len(in.keypoints))

	if maxMissing > in.cfg.MaxMissingJoints {
		return CheckResult{QualityFail,
			fmt.Sprintf("too many missing joints: %d > %d", maxMissing, in.cfg.MaxMissingJoints), float64(maxMissing)}
	}
	if avgMissing > float64(in.cfg.MaxMissingJoints)/2 {
		return CheckResult{QualityWarning,
			fmt.Sprintf("elevated missing joints: %.1f per frame", avgMissing), avgMissing}
	}
	return CheckResult{QualityPass, fmt.Sprintf("missing joints acceptable: %.1f per frame", avgMissing), avgMissing}
}

// legBones are the bones whose length must stay consistent across
// frames for the capture to be anatomically plausible.
var legBones = []struct {
	name string
	a, b int
}{
	{"left femur", JointLeftHip, JointLeftKnee},
	{"right femur", JointRightHip, JointRightKnee},
	{"left tibia", JointLeftKnee, JointLeftAnkle},
	{"right tibia", JointRightKnee, JointRightAnkle},
}

// checkAnatomicalConstraints counts plausibility violations: bones
// whose length varies too much across frames and frames where an ankle
// penetrates the ground plane beyond tolerance.
func checkAnatomicalConstraints(in checkInput) CheckResult {
	violations := 0
	var notes []string

	for _, bone := range legBones {
		lengths := make([]float64, 0, len(in.keypoints))
		for i := range in.keypoints {
			if jointMissing(in.keypoints[i][bone.a]) || jointMissing(in.keypoints[i][bone.b]) {
				continue
			}
			lengths = append(lengths, in.keypoints[i][bone.b].Sub(in.keypoints[i][bone.a]).Norm())
		}
		if len(lengths) < 2 {
			continue
		}
		mean := stat.Mean(lengths, nil)
		if mean <= 0 {
			continue
		}
		cv := stat.StdDev(lengths, nil) / mean
		if cv > in.cfg.BoneLengthMaxCV {
			violations++
			notes = append(notes, fmt.Sprintf("%s length inconsistent (CV %.2f)", bone.name, cv))
		}
	}

	ground := quantileAnkleHeight(in.keypoints, DefaultGroundPercentile)
	belowGround := 0
	for i := range in.keypoints {
		for _, j := range [2]int{JointLeftAnkle, JointRightAnkle} {
			if !jointMissing(in.keypoints[i][j]) && in.keypoints[i][j].Z < ground-in.cfg.GroundToleranceMM {
				belowGround++
				break
			}
		}
	}
	if belowGround > 0 {
		violations += belowGround
		notes = append(notes, fmt.Sprintf("feet below ground in %d frames", belowGround))
	}

	switch {
	case violations > in.cfg.MaxViolations:
		return CheckResult{QualityFail,
			fmt.Sprintf("multiple anatomical violations: %d (%s)", violations, strings.Join(notes, "; ")), float64(violations)}
	case violations > 0:
		return CheckResult{QualityWarning,
			fmt.Sprintf("some anatomical violations: %d (%s)", violations, strings.Join(notes, "; ")), float64(violations)}
	}
	return CheckResult{QualityPass, "anatomical constraints satisfied", 0}
}

// checkTemporalConsistency warns when too large a share of joint-frame
// transitions exceed the per-frame displacement cap.
func checkTemporalConsistency(in checkInput) CheckResult {
	if len(in.keypoints) < 2 {
		return CheckResult{QualityPass, "temporal consistency acceptable", 0}
	}
	fast := 0
	total := 0
	for i := 1; i < len(in.keypoints); i++ {
		for j := 0; j < NumJoints; j++ {
			total++
			if in.keypoints[i][j].Sub(in.keypoints[i-1][j]).Norm() > in.cfg.MaxJointSpeed {
				fast++
			}
		}
	}
	ratio := float64(fast) / float64(total)
	if ratio > in.cfg.MaxFastMotionRatio {
		return CheckResult{QualityWarning,
			fmt.Sprintf("temporal inconsistencies detected: %d excessive movements", fast), ratio}
	}
	return CheckResult{QualityPass, "temporal consistency acceptable", ratio}
}

// quantileAnkleHeight estimates the floor the same way the contact
// stage does, so the ground-penetration check and the constraint share
// one definition of "ground".
func quantileAnkleHeight(keypoints KeypointSequence, percentile float64) float64 {
	heights := ankleHeights(keypoints)
	if len(heights) == 0 {
		return 0
	}
	sort.Float64s(heights)
	return stat.Quantile(percentile, stat.Empirical, heights, nil)
}
