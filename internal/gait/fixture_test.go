package gait

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stridelab/gait.report/internal/fsutil"
)

func TestFixtureRoundTrip(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.Frames = 20
	seq, conf := GenerateWalk(cfg)

	path := filepath.Join(t.TempDir(), "walk.json")
	if err := WriteFixture(path, 30, seq, conf); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	gotSeq, gotConf, fps, err := ReadFixture(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if fps != 30 {
		t.Errorf("frame rate = %v, want 30", fps)
	}
	if diff := cmp.Diff(seq, gotSeq); diff != "" {
		t.Errorf("keypoints (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(conf, gotConf); diff != "" {
		t.Errorf("confidence (-want +got):\n%s", diff)
	}
}

func TestFixtureOmitsAbsentConfidence(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.Frames = 5
	seq, _ := GenerateWalk(cfg)

	path := filepath.Join(t.TempDir(), "walk.json")
	if err := WriteFixture(path, 30, seq, nil); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, gotConf, _, err := ReadFixture(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if gotConf != nil {
		t.Errorf("expected nil confidence, got %d frames", len(gotConf))
	}
}

func TestReadFixtureRejectsWrongJointCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"frame_rate": 30, "keypoints": [[[1, 2, 3]]]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := ReadFixture(path)
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("want *ShapeError, got %T: %v", err, err)
	}
}

func TestFixtureRoundTripInMemory(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.Frames = 10
	seq, conf := GenerateWalk(cfg)

	fs := fsutil.NewMemoryFileSystem()
	if err := WriteFixtureFS(fs, "walk.json", 30, seq, conf); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	gotSeq, _, _, err := ReadFixtureFS(fs, "walk.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if diff := cmp.Diff(seq, gotSeq); diff != "" {
		t.Errorf("keypoints (-want +got):\n%s", diff)
	}
}

func TestReadFixtureMissingFile(t *testing.T) {
	if _, _, _, err := ReadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
