// Package estimator recommends per-class sample counts for training
// lightweight YOLO detection models, based on how many labeled examples a
// dataset folder already contains.
package estimator

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/pkg/labelme"
	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// Target is the accuracy level the recommendation aims for.
type Target string

// The supported accuracy targets.
const (
	Target60 Target = "60"
	Target70 Target = "70"
	Target80 Target = "80"
)

// Complexity buckets objects by how hard they are to learn.
type Complexity string

// The complexity buckets.
const (
	SimpleObjects  Complexity = "simple"  // cars, people, animals
	MediumObjects  Complexity = "medium"  // furniture, signs, tools
	ComplexObjects Complexity = "complex" // small parts, components, text
)

// baseSamples holds empirical per-class sample baselines for lightweight
// models, per complexity bucket and accuracy target.
var baseSamples = map[Complexity]map[Target]int{
	SimpleObjects:  {Target60: 70, Target70: 120, Target80: 200},
	MediumObjects:  {Target60: 150, Target70: 250, Target80: 400},
	ComplexObjects: {Target60: 300, Target70: 500, Target80: 800},
}

// sizeFactor scales the baseline by training image size.
var sizeFactor = map[int]float64{
	320:  0.8,
	640:  1.0,
	1280: 1.4,
}

var simpleKeywords = []string{"person", "car", "truck", "dog", "cat", "bird"}
var complexKeywords = []string{"screw", "component", "part", "text", "label"}

// ClassRecommendation is the per-class estimate.
type ClassRecommendation struct {
	Current    int        `json:"current"`
	Needed     int        `json:"needed"`
	Shortage   int        `json:"shortage"`
	Progress   int        `json:"progress"` // percent, capped at 100
	Complexity Complexity `json:"complexity"`
	Status     string     `json:"status"`
	NextAction string     `json:"next_action"`
}

// Recommendation is the full estimate for a dataset folder.
type Recommendation struct {
	TotalCurrent int                            `json:"total_current"`
	TotalNeeded  int                            `json:"total_needed"`
	Progress     int                            `json:"progress"`
	LabelRate    float64                        `json:"label_rate"`
	ImageSize    int                            `json:"image_size"`
	Target       Target                         `json:"target"`
	Classes      map[string]ClassRecommendation `json:"classes"`
	NextSteps    []string                       `json:"next_steps"`
}

// Estimator analyzes labeled folders and produces sample recommendations.
type Estimator struct {
	fs afero.Fs
}

// New creates an Estimator on the OS filesystem.
func New() *Estimator {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates an Estimator on the given filesystem.
func NewWithFs(fs afero.Fs) *Estimator {
	return &Estimator{fs: fs}
}

// JudgeComplexity buckets a class by its name.
func JudgeComplexity(class string) Complexity {
	lower := strings.ToLower(class)
	for _, kw := range simpleKeywords {
		if strings.Contains(lower, kw) {
			return SimpleObjects
		}
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return ComplexObjects
		}
	}
	return MediumObjects
}

// CountClasses extracts per-label rectangle counts from the annotation files
// of the given pairs, tolerating unreadable files.
func (e *Estimator) CountClasses(dir string, pairList []pairs.Pair) map[string]int {
	counts := make(map[string]int)
	for _, pair := range pairList {
		f, err := labelme.Parse(e.fs, filepath.Join(dir, pair.Annotation))
		if err != nil {
			continue
		}
		for _, shape := range f.Rectangles() {
			counts[shape.Label]++
		}
	}
	return counts
}

// Recommend analyzes a mixed image/JSON folder and returns per-class sample
// recommendations for the given accuracy target and training image size.
// Unknown image sizes fall back to the 640 baseline.
func (e *Estimator) Recommend(dir string, target Target, imageSize int) (*Recommendation, error) {
	if _, ok := baseSamples[SimpleObjects][target]; !ok {
		return nil, fmt.Errorf("unknown accuracy target %q", target)
	}

	summary, err := pairs.Summarize(e.fs, dir)
	if err != nil {
		return nil, err
	}
	if summary.PairCount == 0 {
		return nil, fmt.Errorf("no labeled images found in %s", dir)
	}

	pairList, err := pairs.Scan(e.fs, dir)
	if err != nil {
		return nil, err
	}

	counts := e.CountClasses(dir, pairList)
	if len(counts) == 0 {
		return nil, fmt.Errorf("no rectangle labels found in %s", dir)
	}

	factor, ok := sizeFactor[imageSize]
	if !ok {
		imageSize = 640
		factor = sizeFactor[imageSize]
	}

	rec := &Recommendation{
		LabelRate: summary.LabelRate(),
		ImageSize: imageSize,
		Target:    target,
		Classes:   make(map[string]ClassRecommendation, len(counts)),
	}

	for class, current := range counts {
		complexity := JudgeComplexity(class)
		needed := int(float64(baseSamples[complexity][target]) * factor)
		shortage := needed - current
		if shortage < 0 {
			shortage = 0
		}

		progress := 100
		if needed > 0 && current < needed {
			progress = current * 100 / needed
		}

		rec.Classes[class] = ClassRecommendation{
			Current:    current,
			Needed:     needed,
			Shortage:   shortage,
			Progress:   progress,
			Complexity: complexity,
			Status:     statusMessage(progress),
			NextAction: nextAction(shortage),
		}

		rec.TotalCurrent += current
		rec.TotalNeeded += needed
	}

	if rec.TotalNeeded > 0 {
		rec.Progress = rec.TotalCurrent * 100 / rec.TotalNeeded
		if rec.Progress > 100 {
			rec.Progress = 100
		}
	}
	rec.NextSteps = nextSteps(rec.Classes)

	return rec, nil
}

func statusMessage(progress int) string {
	switch {
	case progress >= 100:
		return "enough samples, ready to train"
	case progress >= 70:
		return "almost there"
	case progress >= 30:
		return "still short, keep labeling"
	default:
		return "far short, keep at it"
	}
}

func nextAction(shortage int) string {
	switch {
	case shortage == 0:
		return "start training"
	case shortage <= 10:
		return fmt.Sprintf("label %d more images", shortage)
	case shortage <= 50:
		return fmt.Sprintf("aim for %d more this week", shortage)
	default:
		days := shortage / 7
		if days < 7 {
			days = 7
		}
		return fmt.Sprintf("label 5-10 per day, roughly %d days to finish", days)
	}
}

func nextSteps(classes map[string]ClassRecommendation) []string {
	worstClass := ""
	worstShortage := 0
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if classes[name].Shortage > worstShortage {
			worstShortage = classes[name].Shortage
			worstClass = name
		}
	}

	if worstShortage > 0 {
		return []string{
			fmt.Sprintf("prioritize labeling %q", worstClass),
			"draw rectangles around objects in labelme",
			"use exact, consistent label names",
			"aim for about 10 images per day",
		}
	}
	return []string{
		"prepare the training scripts",
		"split the data into train/val",
		"convert to YOLO format",
	}
}
