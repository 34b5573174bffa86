// Package datasetconverter converts labelme-annotated image folders into
// YOLO training datasets.
//
// The converter scans a folder of images paired with labelme rectangle
// annotations, builds a deterministic class vocabulary, partitions the pairs
// into train/val splits, rewrites every rectangle as a normalized
// center-format bounding box and materializes the standard YOLO directory
// layout together with classes.names, dataset.yaml and a usage note.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		datasetconverter "github.com/menta2k/dataset-converter"
//		"github.com/menta2k/dataset-converter/pkg/converter"
//	)
//
//	func main() {
//		dc := datasetconverter.New()
//
//		result, err := dc.Convert(converter.Options{
//			InputDir:   "labelme-data",
//			OutputDir:  "yolo-dataset",
//			TrainRatio: 0.8,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("converted %d images, %d annotations, %d classes\n",
//			result.Stats.ConvertedImages, result.Stats.TotalAnnotations,
//			len(result.ClassMapping))
//
//		validation := dc.ValidateDataset("yolo-dataset")
//		fmt.Printf("dataset valid: %v\n", validation.Valid)
//	}
//
// The package consists of four main components:
//
// 1. Converter (pkg/converter): the conversion engine and dataset validator
// 2. Pairs (pkg/pairs): image/annotation pair discovery and folder summaries
// 3. Quality (pkg/quality): image quality scoring for training suitability
// 4. Estimator (pkg/estimator): per-class sample-size recommendations
//
// Features:
//
//   - Deterministic class indices (lexicographic label order, stable
//     across runs and scan orders)
//   - Corner-order independent rectangle conversion with fixed 6-decimal
//     label output
//   - Ratio-based train/val splitting with optional reproducible seed
//   - Optional image resizing during copy (normalized labels stay valid)
//   - Per-file error isolation: one bad annotation never aborts a run
//   - Structural dataset validation with image/label count parity checks
//   - CLI tool for conversion, validation, quality checks and estimates
package datasetconverter

import (
	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/pkg/converter"
	"github.com/menta2k/dataset-converter/pkg/estimator"
	"github.com/menta2k/dataset-converter/pkg/pairs"
	"github.com/menta2k/dataset-converter/pkg/quality"
)

// Version of the dataset converter library
const Version = "1.0.0"

// DatasetConverter provides a high-level interface for dataset conversion,
// validation, quality checks and sample estimation.
type DatasetConverter struct {
	fs        afero.Fs
	converter *converter.Converter
	checker   *quality.Checker
	estimator *estimator.Estimator
}

// New creates a DatasetConverter operating on the OS filesystem.
func New() *DatasetConverter {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a DatasetConverter operating on the given filesystem.
func NewWithFs(fs afero.Fs) *DatasetConverter {
	return &DatasetConverter{
		fs:        fs,
		converter: converter.NewWithFs(fs),
		checker:   quality.NewWithConfig(fs, quality.DefaultThresholds()),
		estimator: estimator.NewWithFs(fs),
	}
}

// Converter exposes the underlying conversion engine.
func (dc *DatasetConverter) Converter() *converter.Converter {
	return dc.converter
}

// Convert runs a full labelme to YOLO conversion.
func (dc *DatasetConverter) Convert(opts converter.Options) (*converter.Result, error) {
	return dc.converter.Convert(opts)
}

// ValidateDataset checks a produced dataset tree for structural
// completeness and image/label count parity.
func (dc *DatasetConverter) ValidateDataset(dir string) *converter.ValidationResult {
	return dc.converter.Validate(dir)
}

// SummarizeFolder reports how many images, annotations and matched pairs an
// input folder contains.
func (dc *DatasetConverter) SummarizeFolder(dir string) (pairs.FolderSummary, error) {
	return pairs.Summarize(dc.fs, dir)
}

// CheckQuality scores every image in a folder for training suitability.
func (dc *DatasetConverter) CheckQuality(dir string) (*quality.FolderReport, error) {
	return dc.checker.CheckFolder(dir)
}

// EstimateSamples recommends per-class sample counts for an accuracy target
// and training image size.
func (dc *DatasetConverter) EstimateSamples(dir string, target estimator.Target, imageSize int) (*estimator.Recommendation, error) {
	return dc.estimator.Recommend(dir, target, imageSize)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
