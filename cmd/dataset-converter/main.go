package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	datasetconverter "github.com/menta2k/dataset-converter"
	"github.com/menta2k/dataset-converter/internal/config"
	"github.com/menta2k/dataset-converter/pkg/converter"
	"github.com/menta2k/dataset-converter/pkg/estimator"
	"github.com/menta2k/dataset-converter/pkg/quality"
)

func main() {
	cfg := config.Default()

	var mode, in, out, resize, configPath, target string
	var ratio float64
	var seed int64
	var copyImages, jsonOut, debug bool
	var imageSize int

	flag.StringVar(&mode, "mode", "convert", "operation: convert|validate|quality|estimate")
	flag.StringVar(&in, "in", "", "input folder with images and labelme JSON files")
	flag.StringVar(&out, "out", "", "output dataset folder (convert) or dataset to validate")
	flag.Float64Var(&ratio, "ratio", cfg.Converter.TrainRatio, "train split ratio, in (0,1)")
	flag.Int64Var(&seed, "seed", -1, "shuffle seed for a reproducible split (-1 = random each run)")
	flag.BoolVar(&copyImages, "copy", cfg.Converter.CopyImages, "copy image files into the output tree")
	flag.StringVar(&resize, "resize", "", "resize copied images to WxH, e.g. 640x640")
	flag.BoolVar(&jsonOut, "json", false, "write a machine-readable summary into the output folder")
	flag.StringVar(&configPath, "config", "", "JSON config file (defaults applied when empty)")
	flag.StringVar(&target, "target", cfg.Estimator.Target, "estimate accuracy target: 60|70|80")
	flag.IntVar(&imageSize, "imgsize", cfg.Estimator.ImageSize, "estimate training image size: 320|640|1280")
	flag.BoolVar(&debug, "debug", false, "verbose logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load config")
		}
		if err := loaded.Validate(); err != nil {
			logger.Fatal().Err(err).Msg("invalid config")
		}
		cfg = loaded

		// Config supplies defaults; explicit flags win.
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if !set["ratio"] {
			ratio = cfg.Converter.TrainRatio
		}
		if !set["copy"] {
			copyImages = cfg.Converter.CopyImages
		}
		if !set["seed"] && cfg.Converter.Seeded {
			seed = cfg.Converter.Seed
		}
		if !set["target"] {
			target = cfg.Estimator.Target
		}
		if !set["imgsize"] {
			imageSize = cfg.Estimator.ImageSize
		}
	}

	dc := datasetconverter.New()
	dc.Converter().SetLogger(logger)

	switch mode {
	case "convert":
		runConvert(dc, logger, in, out, ratio, seed, copyImages, resize, jsonOut)
	case "validate":
		runValidate(dc, logger, pickDir(out, in))
	case "quality":
		runQuality(logger, in, cfg.Quality)
	case "estimate":
		runEstimate(dc, logger, in, target, imageSize)
	default:
		logger.Fatal().Str("mode", mode).Msg("unknown mode (use convert, validate, quality or estimate)")
	}
}

func pickDir(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

func runConvert(dc *datasetconverter.DatasetConverter, logger zerolog.Logger, in, out string, ratio float64, seed int64, copyImages bool, resize string, jsonOut bool) {
	if in == "" || out == "" {
		logger.Fatal().Msgf("usage: %s -mode convert -in <labelme folder> -out <dataset folder> [-ratio 0.8] [-seed N] [-resize WxH]", filepath.Base(os.Args[0]))
	}

	opts := converter.Options{
		InputDir:      in,
		OutputDir:     out,
		TrainRatio:    ratio,
		SkipImageCopy: !copyImages,
	}
	if seed >= 0 {
		opts.Seed = &seed
	}
	if resize != "" {
		target, err := parseResize(resize)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -resize value")
		}
		opts.Resize = target
	}

	result, err := dc.Convert(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("conversion failed")
	}

	stats := result.Stats
	logger.Info().
		Int("converted", stats.ConvertedImages).
		Int("skipped", stats.SkippedImages).
		Int("train", stats.TrainImages).
		Int("val", stats.ValImages).
		Int("annotations", stats.TotalAnnotations).
		Int("classes", len(result.ClassMapping)).
		Msg("dataset written")

	for _, fe := range result.Errors() {
		logger.Warn().Str("file", fe.File).Msg(fe.Message)
	}

	if jsonOut {
		js, _ := json.MarshalIndent(result, "", "  ")
		summaryPath := filepath.Join(out, "conversion_summary.json")
		if err := os.WriteFile(summaryPath, js, 0o644); err != nil {
			logger.Warn().Err(err).Msg("failed to write conversion summary")
		} else {
			logger.Info().Str("path", summaryPath).Msg("wrote conversion summary")
		}
	}
}

func runValidate(dc *datasetconverter.DatasetConverter, logger zerolog.Logger, dir string) {
	if dir == "" {
		logger.Fatal().Msg("usage: -mode validate -out <dataset folder>")
	}

	result := dc.ValidateDataset(dir)
	for _, e := range result.Errors {
		logger.Error().Msg(e)
	}
	for _, w := range result.Warnings {
		logger.Warn().Msg(w)
	}
	if !result.Valid {
		logger.Fatal().Msg("dataset is not valid")
	}

	logger.Info().
		Int("train_images", result.Statistics["train_images"]).
		Int("val_images", result.Statistics["val_images"]).
		Int("train_labels", result.Statistics["train_labels"]).
		Int("val_labels", result.Statistics["val_labels"]).
		Msg("dataset is valid")
}

func runQuality(logger zerolog.Logger, dir string, qc config.QualityConfig) {
	if dir == "" {
		logger.Fatal().Msg("usage: -mode quality -in <image folder>")
	}

	thresholds := quality.DefaultThresholds()
	thresholds.MinWidth = qc.MinWidth
	thresholds.MinHeight = qc.MinHeight
	thresholds.BrightnessMin = qc.BrightnessMin
	thresholds.BrightnessMax = qc.BrightnessMax
	thresholds.ContrastMin = qc.ContrastMin
	thresholds.BlurThreshold = qc.BlurThreshold

	checker := quality.NewWithConfig(afero.NewOsFs(), thresholds)
	report, err := checker.CheckFolder(dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("quality check failed")
	}

	logger.Info().
		Int("images", report.TotalImages).
		Int("checked", report.Checked).
		Int("issues", len(report.Issues)).
		Int("score", report.Score).
		Msg("quality check complete")

	for _, issue := range report.Issues {
		logger.Warn().
			Str("file", issue.File).
			Str("kind", string(issue.Kind)).
			Str("severity", issue.Severity).
			Msg(issue.Detail)
	}
	for _, rec := range report.Recommendations {
		fmt.Println(rec)
	}
}

func runEstimate(dc *datasetconverter.DatasetConverter, logger zerolog.Logger, dir, target string, imageSize int) {
	if dir == "" {
		logger.Fatal().Msg("usage: -mode estimate -in <labelme folder> [-target 70] [-imgsize 640]")
	}

	rec, err := dc.EstimateSamples(dir, estimator.Target(target), imageSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("estimation failed")
	}

	logger.Info().
		Int("current", rec.TotalCurrent).
		Int("needed", rec.TotalNeeded).
		Int("progress", rec.Progress).
		Float64("label_rate", rec.LabelRate).
		Msg("estimation complete")

	for class, cr := range rec.Classes {
		fmt.Printf("%-20s %4d / %4d (%3d%%, %s) - %s\n",
			class, cr.Current, cr.Needed, cr.Progress, cr.Complexity, cr.NextAction)
	}
	fmt.Println("next steps:")
	for i, step := range rec.NextSteps {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
}

// parseResize parses a WxH string like "640x640".
func parseResize(s string) (*[2]int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected WxH, got %q", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return nil, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return nil, fmt.Errorf("invalid height in %q", s)
	}
	return &[2]int{w, h}, nil
}
