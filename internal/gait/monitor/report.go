// Package monitor renders analysis results for audit and debugging:
// an HTML report with the ankle-height trajectories and detected gait
// events, and a PNG trajectory plot.
package monitor

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/stridelab/gait.report/internal/gait"
)

// WriteHTMLReport renders the ankle-height series of both feet with
// heel-strike markers and a metric summary into a standalone HTML file.
func WriteHTMLReport(path string, result *gait.AnalysisResult, keypoints gait.KeypointSequence) error {
	if result == nil {
		return fmt.Errorf("nil analysis result")
	}

	frames := make([]int, len(keypoints))
	leftZ := make([]opts.LineData, len(keypoints))
	rightZ := make([]opts.LineData, len(keypoints))
	for i := range keypoints {
		frames[i] = i
		leftZ[i] = opts.LineData{Value: keypoints[i][gait.JointLeftAnkle].Z}
		rightZ[i] = opts.LineData{Value: keypoints[i][gait.JointRightAnkle].Z}
	}

	m := &result.Metrics
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Gait Analysis", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Gait analysis %s", result.Provenance.RunID),
			Subtitle: fmt.Sprintf("quality=%s speed=%.0f mm/s cadence=%.1f steps/min stride=%.0f mm",
				result.Assessment.OverallQuality, m.GaitSpeedMMPerS, m.CadenceStepsPerMin, m.StrideLengthMM),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ankle z"}),
	)
	line.SetXAxis(frames).
		AddSeries("left ankle", leftZ).
		AddSeries("right ankle", rightZ)

	line.Overlap(eventScatter("left heel strikes", result.Provenance.Events.LeftHeelStrikes, keypoints, gait.JointLeftAnkle))
	line.Overlap(eventScatter("right heel strikes", result.Provenance.Events.RightHeelStrikes, keypoints, gait.JointRightAnkle))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return line.Render(f)
}

// eventScatter marks event frames on the corresponding ankle series.
func eventScatter(name string, frames []int, keypoints gait.KeypointSequence, joint int) *charts.Scatter {
	data := make([]opts.ScatterData, 0, len(frames))
	for _, fr := range frames {
		if fr < 0 || fr >= len(keypoints) {
			continue
		}
		data = append(data, opts.ScatterData{Value: []interface{}{fr, keypoints[fr][joint].Z}})
	}
	scatter := charts.NewScatter()
	scatter.AddSeries(name, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	return scatter
}
