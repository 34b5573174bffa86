package types

import "fmt"

// Box represents a normalized center-format bounding box with all values
// expressed relative to the image dimensions. Values are in [0,1] whenever
// the source corners lie inside the image; out-of-range corners propagate
// unclamped.
type Box struct {
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Annotation is one converted rectangle annotation: a class index paired
// with its normalized box. Annotations are transient values, produced during
// conversion and immediately serialized to a label file.
type Annotation struct {
	Label   string `json:"label"`
	ClassID int    `json:"class_id"`
	Box     Box    `json:"box"`
}

// Line renders the annotation in YOLO label-file format with fixed 6-decimal
// precision.
func (a Annotation) Line() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", a.ClassID, a.Box.Cx, a.Box.Cy, a.Box.W, a.Box.H)
}
