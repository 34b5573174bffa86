package converter

import (
	"fmt"
	"math"

	"github.com/menta2k/dataset-converter/pkg/labelme"
	"github.com/menta2k/dataset-converter/pkg/types"
)

// transformFile converts one annotation file's rectangle shapes into
// normalized center-format boxes using the frozen class mapping.
//
// The absolute value in the width/height terms makes the result independent
// of corner ordering; annotation tools do not guarantee which corner comes
// first. Coordinates outside the image bounds are not clamped and propagate
// as out-of-[0,1] normalized values.
//
// A shape whose label is missing from the mapping cannot occur when the
// registry scanned the same pair set, but is skipped without error anyway.
func transformFile(f *labelme.File, mapping *ClassMapping) ([]types.Annotation, error) {
	if err := f.ValidateDimensions(); err != nil {
		return nil, err
	}

	w := float64(f.ImageWidth)
	h := float64(f.ImageHeight)

	var annotations []types.Annotation
	for _, shape := range f.Rectangles() {
		classID, ok := mapping.Index(shape.Label)
		if !ok {
			continue
		}

		if len(shape.Points) != 2 || len(shape.Points[0]) < 2 || len(shape.Points[1]) < 2 {
			return nil, fmt.Errorf("rectangle %q has malformed points", shape.Label)
		}

		x1, y1 := shape.Points[0][0], shape.Points[0][1]
		x2, y2 := shape.Points[1][0], shape.Points[1][1]

		annotations = append(annotations, types.Annotation{
			Label:   shape.Label,
			ClassID: classID,
			Box: types.Box{
				Cx: (x1 + x2) / 2 / w,
				Cy: (y1 + y2) / 2 / h,
				W:  math.Abs(x2-x1) / w,
				H:  math.Abs(y2-y1) / h,
			},
		})
	}

	return annotations, nil
}
