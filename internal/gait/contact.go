package gait

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stridelab/gait.report/internal/monitoring"
)

// ContactFlags records, per frame, whether each foot is grounded.
// Index with FootLeft and FootRight.
type ContactFlags [][2]bool

// FootContactConstraint infers the ground plane and stance/swing
// contact from ankle trajectories, then clamps grounded ankles to the
// plane to remove foot-skate drift. The ground plane is recomputed per
// run; the zero value estimates it lazily from the first sequence seen.
type FootContactConstraint struct {
	groundZ     float64
	groundValid bool

	percentile  float64 // Ankle-height percentile taken as the floor
	velocityMax float64 // Max grounded ankle speed (units/s)
	heightMax   float64 // Max grounded ankle height above the floor
	frameRate   float64
}

// NewFootContactConstraint builds a constraint stage; non-positive
// parameters fall back to the defaults.
func NewFootContactConstraint(cfg AnalyzerConfig) *FootContactConstraint {
	c := &FootContactConstraint{
		percentile:  cfg.GroundPercentile,
		velocityMax: cfg.ContactVelocityMax,
		heightMax:   cfg.ContactHeightMax,
		frameRate:   cfg.FrameRate,
	}
	if c.percentile <= 0 {
		c.percentile = DefaultGroundPercentile
	}
	if c.velocityMax <= 0 {
		c.velocityMax = DefaultContactVelocityMax
	}
	if c.heightMax <= 0 {
		c.heightMax = DefaultContactHeightMax
	}
	if c.frameRate <= 0 {
		c.frameRate = DefaultFrameRate
	}
	return c
}

// GroundPlaneZ returns the estimated floor height, estimating it from
// the sequence when no estimate exists yet.
func (c *FootContactConstraint) GroundPlaneZ(keypoints KeypointSequence) float64 {
	if !c.groundValid {
		c.EstimateGroundPlane(keypoints)
	}
	return c.groundZ
}

// EstimateGroundPlane sets the floor to a low percentile of all ankle
// heights across the sequence. The percentile is robust to occasional
// height spikes, unlike the true minimum.
func (c *FootContactConstraint) EstimateGroundPlane(keypoints KeypointSequence) float64 {
	heights := ankleHeights(keypoints)
	if len(heights) == 0 {
		c.groundZ = 0
		c.groundValid = true
		return 0
	}
	sort.Float64s(heights)
	c.groundZ = stat.Quantile(c.percentile, stat.Empirical, heights, nil)
	c.groundValid = true
	monitoring.Logf("gait: ground plane estimated at z = %.2f", c.groundZ)
	return c.groundZ
}

// DetectContact flags, per frame and foot, whether the foot is
// grounded: ankle speed below the velocity threshold and ankle height
// within the contact band above the floor. The first frame has no
// velocity and inherits the second frame's flag.
func (c *FootContactConstraint) DetectContact(keypoints KeypointSequence) ContactFlags {
	n := len(keypoints)
	flags := make(ContactFlags, n)
	if n == 0 {
		return flags
	}
	ground := c.GroundPlaneZ(keypoints)

	for foot := FootLeft; foot <= FootRight; foot++ {
		joint := ankleJoint(foot)
		for i := 1; i < n; i++ {
			vel := keypoints[i][joint].Sub(keypoints[i-1][joint]).Norm() * c.frameRate
			height := math.Abs(keypoints[i][joint].Z - ground)
			flags[i][foot] = vel < c.velocityMax && height < c.heightMax
		}
		if n > 1 {
			flags[0][foot] = flags[1][foot]
		}
	}
	return flags
}

// ApplyConstraints clamps the ankle z of every grounded frame to the
// ground plane, returning a new sequence. Swing-phase trajectories are
// untouched, and re-applying to already-clamped data is a no-op.
func (c *FootContactConstraint) ApplyConstraints(keypoints KeypointSequence, flags ContactFlags) KeypointSequence {
	out := keypoints.Clone()
	ground := c.GroundPlaneZ(keypoints)
	for i := range out {
		if i >= len(flags) {
			break
		}
		for foot := FootLeft; foot <= FootRight; foot++ {
			if flags[i][foot] {
				out[i][ankleJoint(foot)].Z = ground
			}
		}
	}
	return out
}

// Constrain runs detection and constraint application in one call and
// returns the constrained sequence together with the flags used.
func (c *FootContactConstraint) Constrain(keypoints KeypointSequence) (KeypointSequence, ContactFlags) {
	flags := c.DetectContact(keypoints)
	return c.ApplyConstraints(keypoints, flags), flags
}

// ankleHeights collects both ankles' z values across the sequence,
// skipping missing joints.
func ankleHeights(keypoints KeypointSequence) []float64 {
	heights := make([]float64, 0, 2*len(keypoints))
	for i := range keypoints {
		for _, joint := range [2]int{JointLeftAnkle, JointRightAnkle} {
			if !jointMissing(keypoints[i][joint]) {
				heights = append(heights, keypoints[i][joint].Z)
			}
		}
	}
	return heights
}
