// Command gen-gait generates synthetic walk fixtures for testing the
// analysis pipeline without a live pose-estimation stage.
package main

import (
	"flag"
	"log"

	"github.com/stridelab/gait.report/internal/gait"
)

func main() {
	output := flag.String("o", "walk.json", "output fixture path")
	frames := flag.Int("n", 90, "number of frames")
	fps := flag.Float64("fps", 30, "frame rate")
	period := flag.Int("period", 45, "frames per gait cycle")
	stepHeight := flag.Float64("step-height", 80, "peak ankle lift (mm)")
	speed := flag.Float64("speed", 1200, "forward speed (mm/s)")
	noise := flag.Float64("noise", 0, "gaussian jitter std dev (mm)")
	seed := flag.Int64("seed", 1, "noise seed")
	flag.Parse()

	cfg := gait.DefaultWalkConfig()
	cfg.Frames = *frames
	cfg.FrameRate = *fps
	cfg.StridePeriod = *period
	cfg.StepHeightMM = *stepHeight
	cfg.SpeedMMPerS = *speed
	cfg.NoiseStdMM = *noise
	cfg.Seed = *seed

	keypoints, confidence := gait.GenerateWalk(cfg)
	if err := gait.WriteFixture(*output, cfg.FrameRate, keypoints, confidence); err != nil {
		log.Fatalf("write fixture: %v", err)
	}
	log.Printf("wrote %d frames to %s", len(keypoints), *output)
}
