package converter

import "fmt"

// FileError records a non-fatal failure tied to one input file. The run
// continues past it; the affected pair is counted as skipped.
type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Stats aggregates counters for one conversion run. It is mutated only by
// the per-pair conversion step and read-only once the run completes.
type Stats struct {
	TotalImages      int            `json:"total_images"`
	ConvertedImages  int            `json:"converted_images"`
	SkippedImages    int            `json:"skipped_images"`
	TotalAnnotations int            `json:"total_annotations"`
	TrainImages      int            `json:"train_images"`
	ValImages        int            `json:"val_images"`
	ClassCounts      map[string]int `json:"class_counts"`
	Errors           []FileError    `json:"errors,omitempty"`
}

func newStats() *Stats {
	return &Stats{ClassCounts: make(map[string]int)}
}

func (s *Stats) recordError(file, msg string) {
	s.Errors = append(s.Errors, FileError{File: file, Message: msg})
}

// merge folds another stats value into s. Per-pair conversion has no
// cross-pair data dependency once the class mapping is frozen, so per-split
// (or per-worker) stats can be accumulated independently and reduced here.
func (s *Stats) merge(other *Stats) {
	s.TotalImages += other.TotalImages
	s.ConvertedImages += other.ConvertedImages
	s.SkippedImages += other.SkippedImages
	s.TotalAnnotations += other.TotalAnnotations
	s.TrainImages += other.TrainImages
	s.ValImages += other.ValImages
	for label, n := range other.ClassCounts {
		s.ClassCounts[label] += n
	}
	s.Errors = append(s.Errors, other.Errors...)
}
