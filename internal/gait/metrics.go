package gait

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Data-quality flags attached to a GaitMetrics record. Flags surface
// degraded metrics; they never abort the computation.
const (
	FlagLowConfidence          = "low_confidence"
	FlagInsufficientGaitCycles = "insufficient_gait_cycles"
	FlagMissingJoints          = "missing_joints"
	FlagUncalibratedUnits      = "uncalibrated_units"
)

// lowConfidenceFlagThreshold marks a capture as low confidence on the
// report even when it passes the quality gate.
const lowConfidenceFlagThreshold = 0.7

// GaitMetrics is the immutable record of biomarkers for one analysis.
// Distances are mm and angles degrees when calibration succeeded;
// otherwise the input's native unit, flagged via DataQualityFlags.
// Metrics undefined by insufficient events hold a zero sentinel.
type GaitMetrics struct {
	// Spatiotemporal
	GaitSpeedMMPerS      float64
	StrideLengthMM       float64
	StrideTimeS          float64
	StrideVariabilityCV  float64 // Coefficient of variation, percent
	CadenceStepsPerMin   float64
	StepLengthMM         float64
	StepTimeS            float64
	StepAsymmetryPercent float64

	// Phase composition
	DoubleSupportPercent float64
	SingleSupportPercent float64
	StancePhasePercent   float64
	SwingPhasePercent    float64

	// Joint kinematics
	KneeFlexionPeakDeg       float64
	HipFlexionPeakDeg        float64
	AnkleDorsiflexionPeakDeg float64
	KneeClearanceMM          float64
	ToeClearanceMM           float64

	OverallConfidence float64
	DataQualityFlags  []string
}

// Flatten renders the numeric biomarkers as a key-to-value map for the
// persistence/reporting layer.
func (m *GaitMetrics) Flatten() map[string]float64 {
	return map[string]float64{
		"gait_speed_mm_per_s":         m.GaitSpeedMMPerS,
		"stride_length_mm":            m.StrideLengthMM,
		"stride_time_s":               m.StrideTimeS,
		"stride_variability_cv":       m.StrideVariabilityCV,
		"cadence_steps_per_min":       m.CadenceStepsPerMin,
		"step_length_mm":              m.StepLengthMM,
		"step_time_s":                 m.StepTimeS,
		"step_asymmetry_percent":      m.StepAsymmetryPercent,
		"double_support_time_percent": m.DoubleSupportPercent,
		"single_support_time_percent": m.SingleSupportPercent,
		"stance_phase_percent":        m.StancePhasePercent,
		"swing_phase_percent":         m.SwingPhasePercent,
		"knee_flexion_peak_deg":       m.KneeFlexionPeakDeg,
		"hip_flexion_peak_deg":        m.HipFlexionPeakDeg,
		"ankle_dorsiflexion_peak_deg": m.AnkleDorsiflexionPeakDeg,
		"knee_clearance_mm":           m.KneeClearanceMM,
		"toe_clearance_mm":            m.ToeClearanceMM,
		"overall_confidence":          m.OverallConfidence,
	}
}

// GaitMetricsCalculator derives every biomarker from a keypoint
// sequence and its detected gait events. One instance per analysis.
type GaitMetricsCalculator struct {
	fps float64
	dt  float64
}

// NewGaitMetricsCalculator builds a calculator for a capture rate.
func NewGaitMetricsCalculator(fps float64) *GaitMetricsCalculator {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &GaitMetricsCalculator{fps: fps, dt: 1.0 / fps}
}

// Calculate derives all biomarkers. groundZ is the estimated floor
// height; pass NaN to fall back to the minimum observed ankle height.
// Metrics that cannot be computed from the available events return a
// zero sentinel and are surfaced through the record's quality flags.
func (c *GaitMetricsCalculator) Calculate(
	keypoints KeypointSequence,
	confidence ConfidenceSequence,
	events GaitEventSet,
	groundZ float64,
) GaitMetrics {
	n := len(keypoints)
	if math.IsNaN(groundZ) {
		groundZ = minAnkleHeight(keypoints)
	}

	stance, swing := c.phasePercentages(events)
	double, single := c.supportPercentages(events, n)

	m := GaitMetrics{
		GaitSpeedMMPerS:      c.gaitSpeed(keypoints),
		StrideLengthMM:       c.strideLength(keypoints, events),
		StrideTimeS:          c.strideTime(events),
		StrideVariabilityCV:  c.strideVariability(events),
		CadenceStepsPerMin:   c.cadence(events, n),
		StepLengthMM:         c.stepLength(keypoints, events),
		StepTimeS:            c.stepTime(events),
		StepAsymmetryPercent: c.stepAsymmetry(events),

		DoubleSupportPercent: double,
		SingleSupportPercent: single,
		StancePhasePercent:   stance,
		SwingPhasePercent:    swing,

		KneeFlexionPeakDeg:       c.kneeFlexionPeak(keypoints),
		HipFlexionPeakDeg:        c.hipFlexionPeak(keypoints),
		AnkleDorsiflexionPeakDeg: c.ankleDorsiflexionPeak(keypoints),
		KneeClearanceMM:          c.minClearance(keypoints, groundZ, JointLeftKnee, JointRightKnee),
		ToeClearanceMM:           c.minClearance(keypoints, groundZ, JointLeftAnkle, JointRightAnkle),

		OverallConfidence: overallConfidence(confidence),
	}
	m.DataQualityFlags = c.qualityFlags(keypoints, confidence, events)
	return m
}

// gaitSpeed is the forward displacement of the hip centre between the
// first and last frame over the elapsed time.
func (c *GaitMetricsCalculator) gaitSpeed(keypoints KeypointSequence) float64 {
	n := len(keypoints)
	if n < 2 {
		return 0
	}
	first := keypoints[0].HipCenter()
	last := keypoints[n-1].HipCenter()
	elapsed := float64(n-1) * c.dt
	if elapsed <= 0 {
		return 0
	}
	return math.Abs(last.X-first.X) / elapsed
}

// strideLength averages the planar hip-centre displacement between
// consecutive same-foot heel strikes, over both feet.
func (c *GaitMetricsCalculator) strideLength(keypoints KeypointSequence, events GaitEventSet) float64 {
	var lengths []float64
	for foot := FootLeft; foot <= FootRight; foot++ {
		strikes := events.HeelStrikes(foot)
		for i := 0; i+1 < len(strikes); i++ {
			a := keypoints[strikes[i]].HipCenter()
			b := keypoints[strikes[i+1]].HipCenter()
			lengths = append(lengths, b.Sub(a).PlanarNorm())
		}
	}
	if len(lengths) == 0 {
		return 0
	}
	return stat.Mean(lengths, nil)
}

// strideTime averages consecutive same-foot heel-strike intervals.
func (c *GaitMetricsCalculator) strideTime(events GaitEventSet) float64 {
	var times []float64
	for foot := FootLeft; foot <= FootRight; foot++ {
		strikes := events.HeelStrikes(foot)
		for i := 0; i+1 < len(strikes); i++ {
			times = append(times, float64(strikes[i+1]-strikes[i])*c.dt)
		}
	}
	if len(times) == 0 {
		return 0
	}
	return stat.Mean(times, nil)
}

// strideVariability is the coefficient of variation (std/mean, percent)
// of left-foot inter-strike intervals. Undefined below three strikes.
func (c *GaitMetricsCalculator) strideVariability(events GaitEventSet) float64 {
	strikes := events.LeftHeelStrikes
	if len(strikes) < 3 {
		return 0
	}
	times := make([]float64, 0, len(strikes)-1)
	for i := 0; i+1 < len(strikes); i++ {
		times = append(times, float64(strikes[i+1]-strikes[i])*c.dt)
	}
	mean := stat.Mean(times, nil)
	if mean <= 0 {
		return 0
	}
	return stat.StdDev(times, nil) / mean * 100
}

// cadence is the total heel-strike count over both feet per minute.
func (c *GaitMetricsCalculator) cadence(events GaitEventSet, numFrames int) float64 {
	elapsed := float64(numFrames) * c.dt
	if elapsed <= 0 {
		return 0
	}
	return float64(events.TotalStrikes()) / elapsed * 60
}

// stepLength averages the planar ankle distance between a heel strike
// and the nearest subsequent opposite-foot heel strike.
func (c *GaitMetricsCalculator) stepLength(keypoints KeypointSequence, events GaitEventSet) float64 {
	var lengths []float64
	for _, ls := range events.LeftHeelStrikes {
		rs, ok := firstAfter(events.RightHeelStrikes, ls)
		if !ok {
			continue
		}
		l := keypoints[ls][JointLeftAnkle]
		r := keypoints[rs][JointRightAnkle]
		lengths = append(lengths, r.Sub(l).PlanarNorm())
	}
	if len(lengths) == 0 {
		return 0
	}
	return stat.Mean(lengths, nil)
}

// stepTime averages the interval from each heel strike to the nearest
// subsequent opposite-foot heel strike.
func (c *GaitMetricsCalculator) stepTime(events GaitEventSet) float64 {
	var times []float64
	for foot := FootLeft; foot <= FootRight; foot++ {
		opposite := events.HeelStrikes(1 - foot)
		for _, hs := range events.HeelStrikes(foot) {
			if next, ok := firstAfter(opposite, hs); ok {
				times = append(times, float64(next-hs)*c.dt)
			}
		}
	}
	if len(times) == 0 {
		return 0
	}
	return stat.Mean(times, nil)
}

// stepAsymmetry compares mean left and right step time: the absolute
// difference over their average, as a percentage.
func (c *GaitMetricsCalculator) stepAsymmetry(events GaitEventSet) float64 {
	left := interStrikeTimes(events.LeftHeelStrikes, c.dt)
	right := interStrikeTimes(events.RightHeelStrikes, c.dt)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	leftAvg := stat.Mean(left, nil)
	rightAvg := stat.Mean(right, nil)
	total := (leftAvg + rightAvg) / 2
	if total <= 0 {
		return 0
	}
	return math.Abs(leftAvg-rightAvg) / total * 100
}

// phasePercentages derives stance and swing shares from event-bracketed
// gait cycles: for each heel strike with a toe off before the next
// same-foot strike, stance is the strike-to-toe-off fraction of the
// cycle, averaged over both feet.
func (c *GaitMetricsCalculator) phasePercentages(events GaitEventSet) (stancePct, swingPct float64) {
	var fractions []float64
	for foot := FootLeft; foot <= FootRight; foot++ {
		strikes := events.HeelStrikes(foot)
		offs := events.ToeOffs(foot)
		for i := 0; i+1 < len(strikes); i++ {
			hs, next := strikes[i], strikes[i+1]
			to, ok := firstAfter(offs, hs)
			if !ok || to >= next {
				continue
			}
			fractions = append(fractions, float64(to-hs)/float64(next-hs))
		}
	}
	if len(fractions) == 0 {
		return 0, 0
	}
	stancePct = stat.Mean(fractions, nil) * 100
	return stancePct, 100 - stancePct
}

// supportPercentages reconstructs per-frame grounded flags from the
// event-bracketed stance intervals and reports the share of frames with
// both feet grounded (double support) and exactly one (single support).
func (c *GaitMetricsCalculator) supportPercentages(events GaitEventSet, numFrames int) (doublePct, singlePct float64) {
	if numFrames == 0 {
		return 0, 0
	}
	left := groundedFrames(events.LeftHeelStrikes, events.LeftToeOffs, numFrames)
	right := groundedFrames(events.RightHeelStrikes, events.RightToeOffs, numFrames)

	var both, one int
	for i := 0; i < numFrames; i++ {
		switch {
		case left[i] && right[i]:
			both++
		case left[i] || right[i]:
			one++
		}
	}
	if both == 0 && one == 0 {
		return 0, 0
	}
	return float64(both) / float64(numFrames) * 100, float64(one) / float64(numFrames) * 100
}

// groundedFrames marks the frames one foot spends in stance: from each
// heel strike to its toe off (capped at the next strike), plus the lead
// frames when a toe off precedes the first recorded strike.
func groundedFrames(strikes, toeOffs []int, numFrames int) []bool {
	grounded := make([]bool, numFrames)
	if len(strikes) > 0 {
		if to, ok := firstAfter(toeOffs, -1); ok && to < strikes[0] {
			for i := 0; i < to && i < numFrames; i++ {
				grounded[i] = true
			}
		}
	}
	for idx, hs := range strikes {
		end := numFrames
		if idx+1 < len(strikes) {
			end = strikes[idx+1]
		}
		if to, ok := firstAfter(toeOffs, hs); ok && to < end {
			end = to
		}
		for i := hs; i < end && i < numFrames; i++ {
			if i >= 0 {
				grounded[i] = true
			}
		}
	}
	return grounded
}

// kneeFlexionPeak is the maximum angle between the thigh (hip to knee)
// and shank (knee to ankle) vectors across frames and sides, degrees.
func (c *GaitMetricsCalculator) kneeFlexionPeak(keypoints KeypointSequence) float64 {
	sides := [2][3]int{
		{JointLeftHip, JointLeftKnee, JointLeftAnkle},
		{JointRightHip, JointRightKnee, JointRightAnkle},
	}
	peak := 0.0
	for i := range keypoints {
		for _, s := range sides {
			thigh := keypoints[i][s[1]].Sub(keypoints[i][s[0]])
			shank := keypoints[i][s[2]].Sub(keypoints[i][s[1]])
			if a, ok := angleBetweenDeg(thigh, shank); ok && a > peak {
				peak = a
			}
		}
	}
	return peak
}

// hipFlexionPeak is the maximum deviation of the thigh from the trunk
// line across frames and sides, degrees. A fully extended hip (thigh
// collinear with the trunk) scores zero.
func (c *GaitMetricsCalculator) hipFlexionPeak(keypoints KeypointSequence) float64 {
	peak := 0.0
	for i := range keypoints {
		trunk := keypoints[i].ShoulderCenter().Sub(keypoints[i].HipCenter())
		for _, s := range [2][2]int{{JointLeftHip, JointLeftKnee}, {JointRightHip, JointRightKnee}} {
			thigh := keypoints[i][s[1]].Sub(keypoints[i][s[0]])
			if a, ok := angleBetweenDeg(trunk, thigh); ok {
				flexion := 180 - a
				if flexion > peak {
					peak = flexion
				}
			}
		}
	}
	return peak
}

// ankleDorsiflexionPeak is the maximum shank-to-vertical inclination
// across frames and sides, degrees. With no toe keypoint in the 17-point
// layout, shank inclination at terminal stance is the usual proxy.
func (c *GaitMetricsCalculator) ankleDorsiflexionPeak(keypoints KeypointSequence) float64 {
	peak := 0.0
	down := Vec3{Z: -1}
	for i := range keypoints {
		for _, s := range [2][2]int{{JointLeftKnee, JointLeftAnkle}, {JointRightKnee, JointRightAnkle}} {
			shank := keypoints[i][s[1]].Sub(keypoints[i][s[0]])
			if a, ok := angleBetweenDeg(shank, down); ok && a > peak {
				peak = a
			}
		}
	}
	return peak
}

// minClearance is the minimum height of either side's joint above the
// ground plane across the sequence, a trip-risk indicator.
func (c *GaitMetricsCalculator) minClearance(keypoints KeypointSequence, groundZ float64, leftJoint, rightJoint int) float64 {
	min := math.Inf(1)
	for i := range keypoints {
		for _, j := range [2]int{leftJoint, rightJoint} {
			if jointMissing(keypoints[i][j]) {
				continue
			}
			if h := keypoints[i][j].Z - groundZ; h < min {
				min = h
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}

// qualityFlags records the degradations visible from the metrics layer.
func (c *GaitMetricsCalculator) qualityFlags(keypoints KeypointSequence, confidence ConfidenceSequence, events GaitEventSet) []string {
	flags := make([]string, 0, 3)
	if confidence != nil && overallConfidence(confidence) < lowConfidenceFlagThreshold {
		flags = append(flags, FlagLowConfidence)
	}
	if len(events.LeftHeelStrikes) < 2 && len(events.RightHeelStrikes) < 2 {
		flags = append(flags, FlagInsufficientGaitCycles)
	}
	for i := range keypoints {
		found := false
		for j := 0; j < NumJoints; j++ {
			if jointMissing(keypoints[i][j]) {
				flags = append(flags, FlagMissingJoints)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	return flags
}

// overallConfidence is the mean confidence across all joints and
// frames; 0.9 is assumed when the producer supplied none.
func overallConfidence(confidence ConfidenceSequence) float64 {
	if confidence == nil {
		return 0.9
	}
	var sum float64
	var n int
	for i := range confidence {
		for j := 0; j < NumJoints; j++ {
			sum += confidence[i][j]
			n++
		}
	}
	if n == 0 {
		return 0.9
	}
	return sum / float64(n)
}

// angleBetweenDeg returns the angle between two vectors in degrees.
// The second return is false when either vector is degenerate.
func angleBetweenDeg(a, b Vec3) (float64, bool) {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0, false
	}
	cos := a.Dot(b) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

// interStrikeTimes converts heel-strike indices into step intervals.
func interStrikeTimes(strikes []int, dt float64) []float64 {
	if len(strikes) < 2 {
		return nil
	}
	times := make([]float64, 0, len(strikes)-1)
	for i := 0; i+1 < len(strikes); i++ {
		times = append(times, float64(strikes[i+1]-strikes[i])*dt)
	}
	return times
}

// firstAfter returns the smallest element of sorted s strictly greater
// than v.
func firstAfter(s []int, v int) (int, bool) {
	for _, e := range s {
		if e > v {
			return e, true
		}
	}
	return 0, false
}

// minAnkleHeight is the clearance fallback floor when no ground-plane
// estimate is supplied.
func minAnkleHeight(keypoints KeypointSequence) float64 {
	min := math.Inf(1)
	for i := range keypoints {
		for _, j := range [2]int{JointLeftAnkle, JointRightAnkle} {
			if !jointMissing(keypoints[i][j]) && keypoints[i][j].Z < min {
				min = keypoints[i][j].Z
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}
