package gait

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetectGaitEventsSyntheticWalk(t *testing.T) {
	seq, _ := GenerateWalk(DefaultWalkConfig())
	events := DetectGaitEvents(seq, DefaultAnalyzerConfig())

	// Touchdowns at 10 and 55 start six-frame flat stances (five plant
	// frames plus the zero-lift first swing frame), so the detected
	// strikes sit at the plateau midpoints.
	if diff := cmp.Diff([]int{12, 57}, events.LeftHeelStrikes); diff != "" {
		t.Errorf("left heel strikes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{34, 79}, events.RightHeelStrikes); diff != "" {
		t.Errorf("right heel strikes (-want +got):\n%s", diff)
	}
	if events.TotalStrikes() != 4 {
		t.Errorf("total strikes = %d, want 4", events.TotalStrikes())
	}
	// Toe offs happen while the ankle is rising, so each foot must lift
	// at least once between its two strikes.
	for foot := FootLeft; foot <= FootRight; foot++ {
		offs := events.ToeOffs(foot)
		strikes := events.HeelStrikes(foot)
		if len(offs) == 0 {
			t.Fatalf("foot %d: no toe offs detected", foot)
		}
		found := false
		for _, off := range offs {
			if off > strikes[0] && off < strikes[1] {
				found = true
			}
		}
		if !found {
			t.Errorf("foot %d: no toe off between strikes %v: %v", foot, strikes, offs)
		}
	}
}

func TestHeelStrikeCountPeriodicSignal(t *testing.T) {
	const frames = 300
	const period = 30.0
	seq := flatStance(frames, 0)
	for i := range seq {
		seq[i][JointLeftAnkle].Z = 10 - 5*math.Cos(2*math.Pi*float64(i)/period)
	}
	cfg := DefaultAnalyzerConfig()
	events := DetectGaitEvents(seq, cfg)

	strikes := events.HeelStrikes(FootLeft)
	cycles := frames / int(period)
	if len(strikes) < cycles-1 || len(strikes) > cycles+1 {
		t.Errorf("got %d strikes for %d cycles, want within ±1", len(strikes), cycles)
	}

	minSpacing := int(cfg.HeelStrikeSpacing * cfg.FrameRate)
	for i := 1; i < len(strikes); i++ {
		if strikes[i]-strikes[i-1] < minSpacing {
			t.Errorf("strikes %d and %d closer than %d frames", strikes[i-1], strikes[i], minSpacing)
		}
	}
}

// Two dips four frames apart are one physiological event; the deeper
// dip wins.
func TestHeelStrikeSpacingSuppressesDoubleDip(t *testing.T) {
	seq := flatStance(60, 0)
	for i := range seq {
		seq[i][JointLeftAnkle].Z = 10
	}
	seq[20][JointLeftAnkle].Z = 0
	seq[24][JointLeftAnkle].Z = 1

	events := DetectGaitEvents(seq, DefaultAnalyzerConfig())
	if diff := cmp.Diff([]int{20}, events.HeelStrikes(FootLeft)); diff != "" {
		t.Errorf("left heel strikes (-want +got):\n%s", diff)
	}
}

func TestDetectGaitEventsFlatSignal(t *testing.T) {
	seq := flatStance(60, 0)
	events := DetectGaitEvents(seq, DefaultAnalyzerConfig())
	if events.TotalStrikes() != 0 {
		t.Errorf("flat signal produced %d strikes", events.TotalStrikes())
	}
	if len(events.LeftToeOffs)+len(events.RightToeOffs) != 0 {
		t.Errorf("flat signal produced toe offs: %v %v", events.LeftToeOffs, events.RightToeOffs)
	}
}

func TestFindPeaksMinDistanceFloor(t *testing.T) {
	s := []float64{0, 1, 0, 1, 0, 1, 0}
	got := findPeaks(s, 0)
	if diff := cmp.Diff([]int{1, 3, 5}, got); diff != "" {
		t.Errorf("peaks with zero min distance (-want +got):\n%s", diff)
	}
}

func TestFindPeaksFlatPlateau(t *testing.T) {
	cases := []struct {
		name string
		s    []float64
		want []int
	}{
		{"odd plateau midpoint", []float64{0, 0, 5, 5, 5, 0, 0}, []int{3}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, []int{1}},
		{"plateau at signal end is not a peak", []float64{0, 3, 3}, nil},
		{"all-flat signal has no peaks", []float64{1, 1, 1, 1}, nil},
		{"plateau among strict peaks", []float64{0, 4, 0, 3, 3, 3, 0}, []int{1, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := findPeaks(tc.s, 1)
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("peaks (-want +got):\n%s", diff)
			}
		})
	}
}

// Clamping grounded ankles flattens every stance into an exact plateau.
// Event detection must still find one heel strike per stance afterwards,
// not lose them all to the missing strict maxima.
func TestDetectGaitEventsAfterContactClamp(t *testing.T) {
	cfg := DefaultWalkConfig()
	cfg.SpeedMMPerS = 0 // walking in place keeps contact detection honest
	seq, _ := GenerateWalk(cfg)

	before := DetectGaitEvents(seq, DefaultAnalyzerConfig())
	constrained, flags := NewFootContactConstraint(DefaultAnalyzerConfig()).Constrain(seq)
	after := DetectGaitEvents(constrained, DefaultAnalyzerConfig())

	grounded := 0
	for i := range flags {
		if flags[i][FootLeft] {
			grounded++
		}
	}
	if grounded == 0 {
		t.Fatal("constraint stage never detected stance contact")
	}
	if diff := cmp.Diff(before.LeftHeelStrikes, after.LeftHeelStrikes); diff != "" {
		t.Errorf("left heel strikes lost to clamping (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.RightHeelStrikes, after.RightHeelStrikes); diff != "" {
		t.Errorf("right heel strikes lost to clamping (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff([]int{12, 57}, after.LeftHeelStrikes); diff != "" {
		t.Errorf("left heel strikes after clamp (-want +got):\n%s", diff)
	}
}
