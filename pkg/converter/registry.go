package converter

import (
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/pkg/labelme"
	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// ClassMapping is a bijection from the distinct rectangle labels observed
// across all paired annotation files to contiguous indices 0..N-1. Indices
// follow the lexicographic sort of the labels, so the mapping is identical
// regardless of scan order. It is computed once per run and held immutable
// afterwards.
type ClassMapping struct {
	indexByLabel map[string]int
	names        []string
}

// Names returns the class labels in ascending index order.
func (m *ClassMapping) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Index returns the class index for a label.
func (m *ClassMapping) Index(label string) (int, bool) {
	idx, ok := m.indexByLabel[label]
	return idx, ok
}

// Len returns the number of classes.
func (m *ClassMapping) Len() int {
	return len(m.names)
}

// AsMap returns a label to index copy of the mapping.
func (m *ClassMapping) AsMap() map[string]int {
	out := make(map[string]int, len(m.indexByLabel))
	for k, v := range m.indexByLabel {
		out[k] = v
	}
	return out
}

func newClassMapping(labels map[string]bool) *ClassMapping {
	names := make([]string, 0, len(labels))
	for label := range labels {
		names = append(names, label)
	}
	sort.Strings(names)

	indexByLabel := make(map[string]int, len(names))
	for i, name := range names {
		indexByLabel[name] = i
	}

	return &ClassMapping{indexByLabel: indexByLabel, names: names}
}

// collectClasses parses every annotation file once and builds the class
// mapping from all rectangle labels. Per-file parse failures are recorded
// on stats and do not stop the scan.
func collectClasses(fs afero.Fs, inputDir string, pairList []pairs.Pair, stats *Stats) *ClassMapping {
	labels := make(map[string]bool)

	for _, pair := range pairList {
		f, err := labelme.Parse(fs, filepath.Join(inputDir, pair.Annotation))
		if err != nil {
			stats.recordError(pair.Annotation, "class collection failed: "+err.Error())
			continue
		}
		for _, shape := range f.Rectangles() {
			labels[shape.Label] = true
		}
	}

	return newClassMapping(labels)
}
