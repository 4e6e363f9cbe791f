package gait

import (
	"fmt"
	"math"
)

// NumJoints is the fixed size of the body-joint layout. Every keypoint
// frame carries exactly this many joints in the order defined below.
const NumJoints = 17

// Joint indices (COCO 17-point layout). All consumers of a
// KeypointSequence index joints with these constants.
const (
	JointNose = iota
	JointLeftEye
	JointRightEye
	JointLeftEar
	JointRightEar
	JointLeftShoulder
	JointRightShoulder
	JointLeftElbow
	JointRightElbow
	JointLeftWrist
	JointRightWrist
	JointLeftHip
	JointRightHip
	JointLeftKnee
	JointRightKnee
	JointLeftAnkle
	JointRightAnkle
)

// Foot side indices used by contact flags and event sets.
const (
	FootLeft  = 0
	FootRight = 1
)

// Vec3 is a joint position. X is the forward axis, Y lateral, Z vertical
// (pointing up). Units are pixels before calibration, millimetres after.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// PlanarNorm returns the length of v projected onto the X/Y plane.
func (v Vec3) PlanarNorm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Frame holds one video frame's joint positions. The fixed-size array
// makes the joint-axis shape invariant structural rather than checked.
type Frame [NumJoints]Vec3

// KeypointSequence is an ordered sequence of frames produced by the
// upstream pose/lifting stage. Stages never mutate a sequence in place;
// transforms return a fresh sequence.
type KeypointSequence []Frame

// ConfidenceFrame holds one scalar confidence in [0, 1] per joint.
type ConfidenceFrame [NumJoints]float64

// ConfidenceSequence parallels a KeypointSequence frame for frame. A nil
// sequence means the producer supplied no confidence at all.
type ConfidenceSequence []ConfidenceFrame

// Clone returns a deep copy of the sequence.
func (s KeypointSequence) Clone() KeypointSequence {
	out := make(KeypointSequence, len(s))
	copy(out, s)
	return out
}

// HipCenter returns the midpoint of the two hip joints for a frame.
func (f *Frame) HipCenter() Vec3 {
	l, r := f[JointLeftHip], f[JointRightHip]
	return Vec3{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2, Z: (l.Z + r.Z) / 2}
}

// ShoulderCenter returns the midpoint of the two shoulder joints.
func (f *Frame) ShoulderCenter() Vec3 {
	l, r := f[JointLeftShoulder], f[JointRightShoulder]
	return Vec3{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2, Z: (l.Z + r.Z) / 2}
}

// ankleJoint maps a foot side to its ankle joint index.
func ankleJoint(foot int) int {
	if foot == FootLeft {
		return JointLeftAnkle
	}
	return JointRightAnkle
}

// ShapeError reports structurally invalid input: an empty sequence or a
// keypoint/confidence cardinality mismatch. It is the only hard failure
// the analysis core produces; low-quality data degrades instead.
type ShapeError struct {
	Frames           int
	ConfidenceFrames int
	Reason           string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid input shape (%d keypoint frames, %d confidence frames): %s",
		e.Frames, e.ConfidenceFrames, e.Reason)
}

// ValidateShape checks the frame-axis invariants shared by every
// pipeline stage: at least one frame, and, when confidence is supplied,
// one confidence frame per keypoint frame.
func ValidateShape(keypoints KeypointSequence, confidence ConfidenceSequence) error {
	if len(keypoints) < 1 {
		return &ShapeError{Frames: len(keypoints), ConfidenceFrames: len(confidence), Reason: "sequence must contain at least one frame"}
	}
	if confidence != nil && len(confidence) != len(keypoints) {
		return &ShapeError{Frames: len(keypoints), ConfidenceFrames: len(confidence), Reason: "confidence frame count must match keypoint frame count"}
	}
	return nil
}

// jointMissing reports whether a joint position is unusable: any
// non-finite coordinate, or a near-zero vector (undetected joint).
func jointMissing(v Vec3) bool {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
		return true
	}
	if math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) || math.IsInf(v.Z, 0) {
		return true
	}
	return math.Abs(v.X)+math.Abs(v.Y)+math.Abs(v.Z) < 1e-6
}
