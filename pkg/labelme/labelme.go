// Package labelme parses labelme rectangle-annotation files.
//
// A labelme file is one JSON document per image carrying the image dimensions
// and a list of shapes. Only axis-aligned rectangle shapes with a non-empty
// label are meaningful to the converter; everything else is ignored.
package labelme

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
)

// RectangleType is the shape_type value for axis-aligned rectangles.
const RectangleType = "rectangle"

// Shape is one annotated shape within a labelme file. Points are pixel
// coordinates; for rectangles labelme stores exactly two corner points with
// no guaranteed ordering.
type Shape struct {
	Label     string      `json:"label"`
	ShapeType string      `json:"shape_type"`
	Points    [][]float64 `json:"points"`
}

// File is the parsed representation of one labelme annotation file.
type File struct {
	Version     string  `json:"version,omitempty"`
	ImagePath   string  `json:"imagePath,omitempty"`
	ImageWidth  int     `json:"imageWidth"`
	ImageHeight int     `json:"imageHeight"`
	Shapes      []Shape `json:"shapes"`
}

// Parse reads and decodes a labelme annotation file.
func Parse(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotation file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse annotation file: %w", err)
	}

	return &f, nil
}

// ValidateDimensions checks that the file carries positive image dimensions,
// which every geometric conversion depends on.
func (f *File) ValidateDimensions() error {
	if f.ImageWidth <= 0 || f.ImageHeight <= 0 {
		return fmt.Errorf("missing or invalid image dimensions: %dx%d", f.ImageWidth, f.ImageHeight)
	}
	return nil
}

// Rectangles returns the shapes that contribute annotations: rectangles with
// a non-empty trimmed label. The returned shapes carry their trimmed labels.
func (f *File) Rectangles() []Shape {
	var rects []Shape
	for _, s := range f.Shapes {
		if s.ShapeType != RectangleType {
			continue
		}
		label := strings.TrimSpace(s.Label)
		if label == "" {
			continue
		}
		s.Label = label
		rects = append(rects, s)
	}
	return rects
}
