// Package pairs discovers image/annotation file pairs in a dataset folder.
//
// A pair is one image file plus the annotation JSON sharing its stem, e.g.
// cat_01.jpg and cat_01.json. Pair discovery is non-recursive: labelme keeps
// images and their annotations side by side in a single folder.
package pairs

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/internal/utils"
)

// Pair is one image file plus its same-stem annotation file. Both fields are
// file names relative to the scanned folder.
type Pair struct {
	Image      string `json:"image"`
	Annotation string `json:"annotation"`
}

// Stem returns the shared base name of the pair without extension.
func (p Pair) Stem() string {
	return utils.Stem(p.Image)
}

// FolderSummary describes the contents of a dataset folder.
type FolderSummary struct {
	ImageCount      int      `json:"image_count"`
	AnnotationCount int      `json:"annotation_count"`
	PairCount       int      `json:"pair_count"`
	UnlabeledCount  int      `json:"unlabeled_count"`
	Warnings        []string `json:"warnings,omitempty"`
}

// LabelRate returns the fraction of images with a matching annotation file,
// as a percentage.
func (s FolderSummary) LabelRate() float64 {
	if s.ImageCount == 0 {
		return 0
	}
	return float64(s.PairCount) / float64(s.ImageCount) * 100
}

// Scan lists a folder and returns every image file that has a same-stem .json
// annotation next to it. Results are sorted by image name so downstream
// processing order does not depend on directory iteration order.
func Scan(fs afero.Fs, dir string) ([]Pair, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input folder: %w", err)
	}

	jsonFiles := make(map[string]string)
	var imageFiles []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case utils.IsImageFile(name):
			imageFiles = append(imageFiles, name)
		case utils.GetFileExtension(name) == "json":
			jsonFiles[utils.Stem(name)] = name
		}
	}

	var result []Pair
	for _, img := range imageFiles {
		if ann, ok := jsonFiles[utils.Stem(img)]; ok {
			result = append(result, Pair{Image: img, Annotation: ann})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Image < result[j].Image })
	return result, nil
}

// Summarize reports how many images, annotation files and matched pairs a
// folder contains, with warnings for unlabeled images and orphan annotations.
func Summarize(fs afero.Fs, dir string) (FolderSummary, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return FolderSummary{}, fmt.Errorf("failed to read input folder: %w", err)
	}

	var images, annotations int
	stems := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case utils.IsImageFile(name):
			images++
		case utils.GetFileExtension(name) == "json":
			annotations++
			stems[utils.Stem(name)] = true
		}
	}

	var paired int
	for _, e := range entries {
		if !e.IsDir() && utils.IsImageFile(e.Name()) && stems[utils.Stem(e.Name())] {
			paired++
		}
	}

	summary := FolderSummary{
		ImageCount:      images,
		AnnotationCount: annotations,
		PairCount:       paired,
		UnlabeledCount:  images - paired,
	}

	if summary.UnlabeledCount > 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("%d images have no annotation file", summary.UnlabeledCount))
	}
	if annotations > paired {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("%d annotation files have no matching image", annotations-paired))
	}

	return summary, nil
}
