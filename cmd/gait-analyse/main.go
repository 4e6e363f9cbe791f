// Command gait-analyse runs the full gait analysis pipeline over a
// recorded or synthetic keypoint fixture and prints the biomarkers and
// quality verdict. Optional flags write HTML/PNG reports for audit.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"sort"

	"github.com/stridelab/gait.report/internal/config"
	"github.com/stridelab/gait.report/internal/gait"
	"github.com/stridelab/gait.report/internal/gait/monitor"
	"github.com/stridelab/gait.report/internal/units"
	"github.com/stridelab/gait.report/internal/version"
)

func main() {
	input := flag.String("input", "", "path to keypoint fixture JSON (required)")
	speedUnits := flag.String("units", units.MMPS, "display units for gait speed ("+units.GetValidUnitsString()+")")
	showVersion := flag.Bool("version", false, "print version and exit")
	refImage := flag.String("ref-image", "", "optional reference frame image for scale calibration")
	refLength := flag.Float64("ref-length", 0, "real-world reference length in mm (0 = A4 default)")
	fps := flag.Float64("fps", 0, "capture frame rate (0 = fixture value or 30)")
	height := flag.Float64("height", 0, "subject height in mm for anthropometric calibration (0 = unknown)")
	tuning := flag.String("tuning", "", "optional JSON tuning file")
	htmlOut := flag.String("html", "", "write an HTML report to this path")
	pngOut := flag.String("png", "", "write a PNG trajectory plot to this path")
	force := flag.Bool("force", false, "proceed past a failed quality gate")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gait-analyse %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid units %q, want one of: %s", *speedUnits, units.GetValidUnitsString())
	}
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	keypoints, confidence, fixtureFPS, err := gait.ReadFixture(*input)
	if err != nil {
		log.Fatalf("load fixture: %v", err)
	}

	cfg := gait.DefaultAnalyzerConfig()
	tc, err := config.Load(*tuning)
	if err != nil {
		log.Fatalf("load tuning: %v", err)
	}
	tc.ApplyTo(&cfg)
	if fixtureFPS > 0 {
		cfg.FrameRate = fixtureFPS
	}
	if *fps > 0 {
		cfg.FrameRate = *fps
	}
	if *height > 0 {
		cfg.SubjectHeightMM = *height
	}
	if *force {
		cfg.ProceedOnGateFail = true
	}

	in := gait.AnalysisInput{
		Keypoints:         keypoints,
		Confidence:        confidence,
		ReferenceLengthMM: *refLength,
	}
	if *refImage != "" {
		f, err := os.Open(*refImage)
		if err != nil {
			log.Fatalf("open reference image: %v", err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			log.Fatalf("decode reference image: %v", err)
		}
		in.ReferenceFrame = img
	}

	result, err := gait.NewAnalyzer(cfg).Analyze(context.Background(), in)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	fmt.Printf("run %s: quality=%s can_proceed=%v\n",
		result.Provenance.RunID, result.Assessment.OverallQuality, result.Assessment.CanProceed)
	fmt.Printf("scale: %.4f mm/pixel (%s), ground plane z=%.1f\n",
		result.Provenance.Scale.ScaleFactor, result.Provenance.Scale.Method, result.Provenance.GroundPlaneZ)
	if *speedUnits != units.MMPS {
		fmt.Printf("gait speed: %.2f %s\n",
			units.ConvertSpeed(result.Metrics.GaitSpeedMMPerS, *speedUnits), *speedUnits)
	}

	flat := result.Metrics.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-30s %.2f\n", k, flat[k])
	}
	if len(result.Metrics.DataQualityFlags) > 0 {
		fmt.Printf("flags: %v\n", result.Metrics.DataQualityFlags)
	}
	for _, name := range []string{
		gait.CheckFrameCount, gait.CheckJointConfidence, gait.CheckMissingJoints,
		gait.CheckAnatomicConstraints, gait.CheckTemporalConsistency,
	} {
		check := result.Assessment.Checks[name]
		fmt.Printf("  %-24s %-8s %s\n", name, check.Status, check.Message)
	}

	if *htmlOut != "" {
		if err := monitor.WriteHTMLReport(*htmlOut, result, keypoints); err != nil {
			log.Fatalf("write HTML report: %v", err)
		}
		log.Printf("wrote %s", *htmlOut)
	}
	if *pngOut != "" {
		if err := monitor.WriteTrajectoryPNG(*pngOut, result, keypoints); err != nil {
			log.Fatalf("write PNG plot: %v", err)
		}
		log.Printf("wrote %s", *pngOut)
	}
}
