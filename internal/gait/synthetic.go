package gait

import (
	"math"
	"math/rand"
)

// WalkConfig describes a synthetic straight-line walk used for fixtures
// and tests. All distances are millimetres with the floor at GroundZ.
type WalkConfig struct {
	Frames       int
	FrameRate    float64
	StridePeriod int     // Frames per full gait cycle of one foot
	StepHeightMM float64 // Peak ankle lift during swing
	SpeedMMPerS  float64 // Forward hip speed
	GroundZ      float64
	PhaseOffset  int     // Frame of the first left touchdown
	NoiseStdMM   float64 // Gaussian jitter on every coordinate (0 = clean)
	Seed         int64
}

// DefaultWalkConfig is a clean 90-frame walk at 30 fps with two full
// gait cycles per foot.
func DefaultWalkConfig() WalkConfig {
	return WalkConfig{
		Frames:       90,
		FrameRate:    30,
		StridePeriod: 45,
		StepHeightMM: 80,
		SpeedMMPerS:  1200,
		PhaseOffset:  10,
		Seed:         1,
	}
}

// GenerateWalk synthesises an anatomically sized keypoint sequence for
// the configured walk, with unit confidence everywhere. Each foot stays
// planted for the first ninth of its stride cycle, so stance phases
// show the true zero-velocity contact a real walker produces, then
// swings forward along a raised-cosine path with a sinusoidal lift.
// Touchdown lands exactly on the configured phase frames. The
// remaining joints ride on a rigid body of population-average
// proportions, with each knee at the hip-to-ankle midpoint.
func GenerateWalk(cfg WalkConfig) (KeypointSequence, ConfidenceSequence) {
	if cfg.Frames <= 0 {
		cfg.Frames = 90
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.StridePeriod <= 0 {
		cfg.StridePeriod = 45
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	noise := func() float64 {
		if cfg.NoiseStdMM <= 0 {
			return 0
		}
		return rng.NormFloat64() * cfg.NoiseStdMM
	}
	jitter := func(v Vec3) Vec3 {
		return Vec3{X: v.X + noise(), Y: v.Y + noise(), Z: v.Z + noise()}
	}

	strideLen := cfg.SpeedMMPerS * float64(cfg.StridePeriod) / cfg.FrameRate
	plantFrames := cfg.StridePeriod / 9
	if plantFrames < 3 {
		plantFrames = 3
	}
	swingFrames := cfg.StridePeriod - plantFrames
	if swingFrames < 1 {
		swingFrames = 1
	}

	// ankleAt holds the foot at its plant position through early stance,
	// then advances it one stride length over the swing.
	ankleAt := func(t, phase int, y float64) Vec3 {
		k := (t - phase) / cfg.StridePeriod
		if (t-phase)%cfg.StridePeriod < 0 {
			k--
		}
		tau := t - phase - k*cfg.StridePeriod
		plantX := cfg.SpeedMMPerS*float64(phase)/cfg.FrameRate + strideLen*float64(k)
		if tau < plantFrames {
			return Vec3{X: plantX, Y: y, Z: cfg.GroundZ}
		}
		u := float64(tau-plantFrames) / float64(swingFrames)
		return Vec3{
			X: plantX + strideLen*0.5*(1-math.Cos(math.Pi*u)),
			Y: y,
			Z: cfg.GroundZ + cfg.StepHeightMM*math.Sin(math.Pi*u),
		}
	}

	seq := make(KeypointSequence, cfg.Frames)
	conf := make(ConfidenceSequence, cfg.Frames)
	rightPhase := cfg.PhaseOffset + cfg.StridePeriod/2

	for t := 0; t < cfg.Frames; t++ {
		forward := cfg.SpeedMMPerS * float64(t) / cfg.FrameRate
		ankleL := ankleAt(t, cfg.PhaseOffset, 100)
		ankleR := ankleAt(t, rightPhase, -100)
		hipL := Vec3{X: forward, Y: 100, Z: cfg.GroundZ + 900}
		hipR := Vec3{X: forward, Y: -100, Z: cfg.GroundZ + 900}
		kneeL := Vec3{X: (hipL.X + ankleL.X) / 2, Y: 100, Z: (hipL.Z + ankleL.Z) / 2}
		kneeR := Vec3{X: (hipR.X + ankleR.X) / 2, Y: -100, Z: (hipR.Z + ankleR.Z) / 2}

		var f Frame
		f[JointNose] = Vec3{X: forward, Y: 0, Z: cfg.GroundZ + 1500}
		f[JointLeftEye] = Vec3{X: forward, Y: 30, Z: cfg.GroundZ + 1530}
		f[JointRightEye] = Vec3{X: forward, Y: -30, Z: cfg.GroundZ + 1530}
		f[JointLeftEar] = Vec3{X: forward, Y: 60, Z: cfg.GroundZ + 1510}
		f[JointRightEar] = Vec3{X: forward, Y: -60, Z: cfg.GroundZ + 1510}
		f[JointLeftShoulder] = Vec3{X: forward, Y: 150, Z: cfg.GroundZ + 1350}
		f[JointRightShoulder] = Vec3{X: forward, Y: -150, Z: cfg.GroundZ + 1350}
		f[JointLeftElbow] = Vec3{X: forward, Y: 180, Z: cfg.GroundZ + 1100}
		f[JointRightElbow] = Vec3{X: forward, Y: -180, Z: cfg.GroundZ + 1100}
		f[JointLeftWrist] = Vec3{X: forward, Y: 200, Z: cfg.GroundZ + 880}
		f[JointRightWrist] = Vec3{X: forward, Y: -200, Z: cfg.GroundZ + 880}
		f[JointLeftHip] = hipL
		f[JointRightHip] = hipR
		f[JointLeftKnee] = kneeL
		f[JointRightKnee] = kneeR
		f[JointLeftAnkle] = ankleL
		f[JointRightAnkle] = ankleR

		if cfg.NoiseStdMM > 0 {
			for j := range f {
				f[j] = jitter(f[j])
			}
		}
		seq[t] = f
		for j := 0; j < NumJoints; j++ {
			conf[t][j] = 1.0
		}
	}
	return seq, conf
}

// UniformConfidence builds a confidence sequence with one value for
// every joint of every frame.
func UniformConfidence(frames int, value float64) ConfidenceSequence {
	conf := make(ConfidenceSequence, frames)
	for i := range conf {
		for j := 0; j < NumJoints; j++ {
			conf[i][j] = value
		}
	}
	return conf
}
