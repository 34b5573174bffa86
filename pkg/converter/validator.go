package converter

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// ValidationResult is the structured outcome of a dataset validation. All
// failure is communicated through this value; Validate never panics.
type ValidationResult struct {
	Valid      bool           `json:"valid"`
	Errors     []string       `json:"errors,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	Statistics map[string]int `json:"statistics,omitempty"`
}

// Validate inspects a produced (or externally supplied) output tree for
// structural completeness. Missing required items are errors and skip
// statistics collection; an image/label count mismatch per split is only
// a warning.
func (c *Converter) Validate(datasetDir string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	required := append(append([]string{}, outputSubdirs...), DescriptorFile)
	for _, item := range required {
		exists, err := afero.Exists(c.fs, filepath.Join(datasetDir, item))
		if err != nil || !exists {
			result.Errors = append(result.Errors, fmt.Sprintf("required item missing: %s", item))
			result.Valid = false
		}
	}

	if !result.Valid {
		return result
	}

	counts := make(map[string]int, len(outputSubdirs))
	for _, sub := range outputSubdirs {
		entries, err := afero.ReadDir(c.fs, filepath.Join(datasetDir, sub))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cannot read %s: %v", sub, err))
			result.Valid = false
			return result
		}
		counts[sub] = len(entries)
	}

	result.Statistics = map[string]int{
		"train_images": counts["images/"+SplitTrain],
		"val_images":   counts["images/"+SplitVal],
		"train_labels": counts["labels/"+SplitTrain],
		"val_labels":   counts["labels/"+SplitVal],
	}

	for _, split := range []string{SplitTrain, SplitVal} {
		images := counts["images/"+split]
		labels := counts["labels/"+split]
		if images != labels {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s image/label count mismatch: %d vs %d", split, images, labels))
		}
	}

	return result
}
