package gait

import "sort"

// GaitEventSet holds the detected gait events as frame indices into the
// source sequence. Read-only after detection.
type GaitEventSet struct {
	LeftHeelStrikes  []int
	RightHeelStrikes []int
	LeftToeOffs      []int
	RightToeOffs     []int
}

// HeelStrikes returns the heel-strike indices for a foot.
func (e *GaitEventSet) HeelStrikes(foot int) []int {
	if foot == FootLeft {
		return e.LeftHeelStrikes
	}
	return e.RightHeelStrikes
}

// ToeOffs returns the toe-off indices for a foot.
func (e *GaitEventSet) ToeOffs(foot int) []int {
	if foot == FootLeft {
		return e.LeftToeOffs
	}
	return e.RightToeOffs
}

// TotalStrikes returns the heel-strike count over both feet.
func (e *GaitEventSet) TotalStrikes() int {
	return len(e.LeftHeelStrikes) + len(e.RightHeelStrikes)
}

// DetectGaitEvents treats each foot's ankle height as a 1D signal.
// Heel strikes are local minima (peaks of the negated signal) at least
// 0.5 s of frames apart; toe offs are local maxima of the frame-to-frame
// vertical velocity at least 0.3 s apart. The spacing constraints are
// the tie-break preventing double counting within one stride.
func DetectGaitEvents(keypoints KeypointSequence, cfg AnalyzerConfig) GaitEventSet {
	fps := cfg.FrameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	strikeSpacing := int(cfg.HeelStrikeSpacing * fps)
	toeOffSpacing := int(cfg.ToeOffSpacing * fps)

	var events GaitEventSet
	for foot := FootLeft; foot <= FootRight; foot++ {
		z := ankleHeightSeries(keypoints, foot)
		strikes := findPeaks(negate(z), strikeSpacing)
		offs := findPeaks(diff(z), toeOffSpacing)
		if foot == FootLeft {
			events.LeftHeelStrikes, events.LeftToeOffs = strikes, offs
		} else {
			events.RightHeelStrikes, events.RightToeOffs = strikes, offs
		}
	}
	return events
}

// ankleHeightSeries extracts one foot's ankle z trajectory.
func ankleHeightSeries(keypoints KeypointSequence, foot int) []float64 {
	joint := ankleJoint(foot)
	z := make([]float64, len(keypoints))
	for i := range keypoints {
		z[i] = keypoints[i][joint].Z
	}
	return z
}

func negate(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = -v
	}
	return out
}

// diff returns the first difference of s (length len(s)-1).
func diff(s []float64) []float64 {
	if len(s) < 2 {
		return nil
	}
	out := make([]float64, len(s)-1)
	for i := 1; i < len(s); i++ {
		out[i-1] = s[i] - s[i-1]
	}
	return out
}

// findPeaks returns the indices of local maxima of s, at least
// minDistance samples apart. A flat run of equal samples flanked by
// lower samples on both sides is one peak at the run's midpoint:
// stance-phase ankles clamped to the ground plane produce exactly such
// plateaus, and each still marks one heel strike. When two candidate
// peaks are closer than minDistance, the higher one wins (ties go to
// the earlier peak).
func findPeaks(s []float64, minDistance int) []int {
	if minDistance < 1 {
		minDistance = 1
	}
	candidates := make([]int, 0)
	for i := 1; i < len(s)-1; i++ {
		if s[i] <= s[i-1] {
			continue
		}
		j := i
		for j < len(s)-1 && s[j+1] == s[i] {
			j++
		}
		if j < len(s)-1 && s[j+1] < s[i] {
			candidates = append(candidates, (i+j)/2)
		}
		i = j
	}

	// Greedy selection from highest to lowest, discarding candidates
	// within minDistance of an accepted peak.
	order := make([]int, len(candidates))
	copy(order, candidates)
	sort.SliceStable(order, func(a, b int) bool {
		if s[order[a]] != s[order[b]] {
			return s[order[a]] > s[order[b]]
		}
		return order[a] < order[b]
	})

	kept := make([]int, 0, len(order))
	for _, idx := range order {
		ok := true
		for _, k := range kept {
			if abs(idx-k) < minDistance {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, idx)
		}
	}
	sort.Ints(kept)
	return kept
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
