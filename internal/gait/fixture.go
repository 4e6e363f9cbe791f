package gait

import (
	"encoding/json"
	"fmt"

	"github.com/stridelab/gait.report/internal/fsutil"
)

// Fixture is the on-disk form of a recorded or synthetic capture:
// keypoints as (frames, 17, 3) and confidence as (frames, 17).
type Fixture struct {
	FrameRate  float64        `json:"frame_rate"`
	Keypoints  [][][3]float64 `json:"keypoints"`
	Confidence [][]float64    `json:"confidence,omitempty"`
}

// WriteFixture stores a capture as JSON on the OS filesystem.
func WriteFixture(path string, frameRate float64, keypoints KeypointSequence, confidence ConfidenceSequence) error {
	return WriteFixtureFS(fsutil.OSFileSystem{}, path, frameRate, keypoints, confidence)
}

// WriteFixtureFS stores a capture as JSON on the given filesystem.
func WriteFixtureFS(fs fsutil.FileSystem, path string, frameRate float64, keypoints KeypointSequence, confidence ConfidenceSequence) error {
	fx := Fixture{
		FrameRate: frameRate,
		Keypoints: make([][][3]float64, len(keypoints)),
	}
	for i := range keypoints {
		frame := make([][3]float64, NumJoints)
		for j := 0; j < NumJoints; j++ {
			v := keypoints[i][j]
			frame[j] = [3]float64{v.X, v.Y, v.Z}
		}
		fx.Keypoints[i] = frame
	}
	if confidence != nil {
		fx.Confidence = make([][]float64, len(confidence))
		for i := range confidence {
			fx.Confidence[i] = append([]float64(nil), confidence[i][:]...)
		}
	}

	data, err := json.MarshalIndent(&fx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return fs.WriteFile(path, data, 0o644)
}

// ReadFixture loads a capture from JSON on the OS filesystem.
func ReadFixture(path string) (KeypointSequence, ConfidenceSequence, float64, error) {
	return ReadFixtureFS(fsutil.OSFileSystem{}, path)
}

// ReadFixtureFS loads a capture from JSON, validating the joint axis.
func ReadFixtureFS(fs fsutil.FileSystem, path string) (KeypointSequence, ConfidenceSequence, float64, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, nil, 0, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	keypoints := make(KeypointSequence, len(fx.Keypoints))
	for i, frame := range fx.Keypoints {
		if len(frame) != NumJoints {
			return nil, nil, 0, &ShapeError{
				Frames: len(fx.Keypoints),
				Reason: fmt.Sprintf("frame %d has %d joints, want %d", i, len(frame), NumJoints),
			}
		}
		for j, v := range frame {
			keypoints[i][j] = Vec3{X: v[0], Y: v[1], Z: v[2]}
		}
	}

	var confidence ConfidenceSequence
	if fx.Confidence != nil {
		confidence = make(ConfidenceSequence, len(fx.Confidence))
		for i, frame := range fx.Confidence {
			if len(frame) != NumJoints {
				return nil, nil, 0, &ShapeError{
					Frames:           len(fx.Keypoints),
					ConfidenceFrames: len(fx.Confidence),
					Reason:           fmt.Sprintf("confidence frame %d has %d joints, want %d", i, len(frame), NumJoints),
				}
			}
			copy(confidence[i][:], frame)
		}
	}
	return keypoints, confidence, fx.FrameRate, nil
}
