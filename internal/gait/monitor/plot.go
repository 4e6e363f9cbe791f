package monitor

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/stridelab/gait.report/internal/gait"
)

// WriteTrajectoryPNG plots both ankle-height trajectories with the
// detected heel strikes and the estimated ground plane, for offline
// inspection of event detection.
func WriteTrajectoryPNG(path string, result *gait.AnalysisResult, keypoints gait.KeypointSequence) error {
	if result == nil {
		return fmt.Errorf("nil analysis result")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Ankle trajectories %s", result.Provenance.RunID)
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "ankle z"

	for foot, name := range map[int]string{gait.FootLeft: "left ankle", gait.FootRight: "right ankle"} {
		pts := make(plotter.XYs, len(keypoints))
		joint := gait.JointLeftAnkle
		if foot == gait.FootRight {
			joint = gait.JointRightAnkle
		}
		for i := range keypoints {
			pts[i] = plotter.XY{X: float64(i), Y: keypoints[i][joint].Z}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build %s line: %w", name, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)

		strikes := result.Provenance.Events.HeelStrikes(foot)
		marks := make(plotter.XYs, 0, len(strikes))
		for _, fr := range strikes {
			if fr >= 0 && fr < len(keypoints) {
				marks = append(marks, plotter.XY{X: float64(fr), Y: keypoints[fr][joint].Z})
			}
		}
		if len(marks) > 0 {
			scatter, err := plotter.NewScatter(marks)
			if err != nil {
				return fmt.Errorf("build %s strikes: %w", name, err)
			}
			p.Add(scatter)
		}
	}

	ground := plotter.XYs{
		{X: 0, Y: result.Provenance.GroundPlaneZ},
		{X: float64(len(keypoints) - 1), Y: result.Provenance.GroundPlaneZ},
	}
	groundLine, err := plotter.NewLine(ground)
	if err != nil {
		return fmt.Errorf("build ground line: %w", err)
	}
	groundLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(groundLine)
	p.Legend.Add("ground plane", groundLine)

	return p.Save(12*vg.Inch, 5*vg.Inch, path)
}
