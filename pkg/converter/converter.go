// Package converter implements the labelme to YOLO dataset conversion
// engine: class vocabulary discovery, train/val partitioning, geometric
// annotation transformation, output tree materialization and post-hoc
// structural validation.
//
// The engine is synchronous and single-pass: classes are collected over the
// full pair set first, the set is partitioned, then each pair is converted
// and written. Per-file failures never abort a run; they accumulate on the
// result and the affected pair counts as skipped. Each run regenerates the
// output tree wholesale.
package converter

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/internal/utils"
	"github.com/menta2k/dataset-converter/pkg/labelme"
	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// DefaultTrainRatio is the fraction of pairs assigned to the train split
// when Options.TrainRatio is zero.
const DefaultTrainRatio = 0.8

// Options configures one conversion run.
type Options struct {
	// InputDir is the labelme folder holding images and annotation JSON.
	// It must exist.
	InputDir string
	// OutputDir is the dataset root, created if absent and overwritten
	// wholesale on re-run.
	OutputDir string
	// TrainRatio is the fraction of pairs assigned to train, in (0,1).
	// Zero selects DefaultTrainRatio.
	TrainRatio float64
	// SkipImageCopy disables copying image files into the output tree;
	// label files are always written.
	SkipImageCopy bool
	// Resize, when set, resizes every copied image to exactly {width,
	// height}. Normalized labels stay valid under resizing.
	Resize *[2]int
	// Seed fixes the train/val shuffle. Nil draws a fresh shuffle per run,
	// making split membership non-reproducible between runs.
	Seed *int64
}

func (o *Options) trainRatio() float64 {
	if o.TrainRatio == 0 {
		return DefaultTrainRatio
	}
	return o.TrainRatio
}

// Result summarizes a completed conversion run.
type Result struct {
	Success      bool              `json:"success"`
	OutputDir    string            `json:"output_dir"`
	Stats        *Stats            `json:"stats"`
	ClassMapping map[string]int    `json:"class_mapping"`
	ConfigFiles  map[string]string `json:"config_files"`
}

// Errors returns the non-fatal per-file errors encountered during the run.
func (r *Result) Errors() []FileError {
	return r.Stats.Errors
}

// Converter converts labelme-annotated folders into YOLO datasets.
type Converter struct {
	fs  afero.Fs
	log zerolog.Logger
}

// New creates a Converter operating on the OS filesystem.
func New() *Converter {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a Converter operating on the given filesystem.
func NewWithFs(fs afero.Fs) *Converter {
	return &Converter{fs: fs, log: zerolog.Nop()}
}

// SetLogger attaches a logger for run progress.
func (c *Converter) SetLogger(log zerolog.Logger) {
	c.log = log
}

// Convert runs the full pipeline. Structural problems (missing input folder,
// no pairs, empty class vocabulary, invalid ratio) abort with an error
// before any output is written; per-file problems are recorded on the
// result and do not abort the run.
func (c *Converter) Convert(opts Options) (*Result, error) {
	ratio := opts.trainRatio()
	if ratio <= 0 || ratio >= 1 {
		return nil, fmt.Errorf("train ratio must be in (0,1), got %v", opts.TrainRatio)
	}
	if !utils.DirExists(c.fs, opts.InputDir) {
		return nil, fmt.Errorf("input folder not found: %s", opts.InputDir)
	}

	pairList, err := pairs.Scan(c.fs, opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(pairList) == 0 {
		return nil, fmt.Errorf("no valid image/annotation pairs found in %s", opts.InputDir)
	}
	c.log.Info().Int("pairs", len(pairList)).Str("input", opts.InputDir).Msg("scanned input folder")

	stats := newStats()
	mapping := collectClasses(c.fs, opts.InputDir, pairList, stats)
	if mapping.Len() == 0 {
		return nil, fmt.Errorf("no rectangle labels found in %s", opts.InputDir)
	}
	c.log.Info().Int("classes", mapping.Len()).Msg("collected class vocabulary")

	if err := prepareOutputFolders(c.fs, opts.OutputDir); err != nil {
		return nil, err
	}

	train, val := splitPairs(pairList, ratio, opts.Seed)

	trainStats := c.convertSplit(opts, train, SplitTrain, mapping)
	valStats := c.convertSplit(opts, val, SplitVal, mapping)
	stats.merge(trainStats)
	stats.merge(valStats)

	configFiles, err := emitConfigs(c.fs, opts.OutputDir, mapping)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Int("converted", stats.ConvertedImages).
		Int("skipped", stats.SkippedImages).
		Int("annotations", stats.TotalAnnotations).
		Msg("conversion complete")

	return &Result{
		Success:      true,
		OutputDir:    opts.OutputDir,
		Stats:        stats,
		ClassMapping: mapping.AsMap(),
		ConfigFiles:  configFiles,
	}, nil
}

// convertSplit converts one subset of pairs into the named split and returns
// its stats for the caller to merge.
func (c *Converter) convertSplit(opts Options, pairList []pairs.Pair, split string, mapping *ClassMapping) *Stats {
	stats := newStats()

	for _, pair := range pairList {
		stats.TotalImages++

		f, err := labelme.Parse(c.fs, filepath.Join(opts.InputDir, pair.Annotation))
		if err != nil {
			stats.SkippedImages++
			stats.recordError(pair.Annotation, err.Error())
			continue
		}

		annotations, err := transformFile(f, mapping)
		if err != nil {
			stats.SkippedImages++
			stats.recordError(pair.Annotation, err.Error())
			continue
		}

		if err := writePair(c.fs, opts.InputDir, opts.OutputDir, pair, split, annotations, !opts.SkipImageCopy, opts.Resize); err != nil {
			stats.SkippedImages++
			stats.recordError(pair.Image, err.Error())
			continue
		}

		stats.ConvertedImages++
		stats.TotalAnnotations += len(annotations)
		for _, a := range annotations {
			stats.ClassCounts[a.Label]++
		}
		if split == SplitTrain {
			stats.TrainImages++
		} else {
			stats.ValImages++
		}
	}

	c.log.Debug().
		Str("split", split).
		Int("converted", stats.ConvertedImages).
		Int("skipped", stats.SkippedImages).
		Msg("split converted")

	return stats
}
