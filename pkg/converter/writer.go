package converter

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/dataset-converter/internal/utils"
	"github.com/menta2k/dataset-converter/pkg/pairs"
	"github.com/menta2k/dataset-converter/pkg/types"
)

// outputSubdirs is the fixed output tree below the dataset root.
var outputSubdirs = []string{
	"images/" + SplitTrain,
	"images/" + SplitVal,
	"labels/" + SplitTrain,
	"labels/" + SplitVal,
}

func prepareOutputFolders(fs afero.Fs, outputDir string) error {
	for _, sub := range outputSubdirs {
		if err := utils.EnsureDir(fs, filepath.Join(outputDir, sub)); err != nil {
			return fmt.Errorf("failed to create output folder %s: %w", sub, err)
		}
	}
	return nil
}

// writePair materializes one converted pair: the image copy (when enabled)
// and the label file. The label file is written even with zero annotations;
// an empty file is a valid output meaning "image with no usable labels".
func writePair(fs afero.Fs, inputDir, outputDir string, pair pairs.Pair, split string, annotations []types.Annotation, copyImages bool, resize *[2]int) error {
	if copyImages {
		src := filepath.Join(inputDir, pair.Image)
		dst := filepath.Join(outputDir, "images", split, pair.Image)
		if err := copyImage(fs, src, dst, resize); err != nil {
			return fmt.Errorf("image copy failed: %w", err)
		}
	}

	var buf bytes.Buffer
	for _, a := range annotations {
		buf.WriteString(a.Line())
		buf.WriteByte('\n')
	}

	labelPath := filepath.Join(outputDir, "labels", split, pair.Stem()+".txt")
	if err := afero.WriteFile(fs, labelPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("label write failed: %w", err)
	}

	return nil
}

// copyImage copies the source image to dst. Without a resize target the copy
// is byte-for-byte; with one the image is decoded, resized to the exact
// target dimensions and re-encoded in its original format. Normalized label
// coordinates are unaffected by resizing.
func copyImage(fs afero.Fs, src, dst string, resize *[2]int) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}

	if resize != nil {
		img, err := decodeImageBytes(data)
		if err != nil {
			return fmt.Errorf("decode for resize: %w", err)
		}
		resized := imaging.Resize(img, resize[0], resize[1], imaging.Lanczos)
		data, err = encodeImage(resized, utils.GetFileExtension(dst))
		if err != nil {
			return fmt.Errorf("encode after resize: %w", err)
		}
	}

	return afero.WriteFile(fs, dst, data, 0644)
}

// decodeImageBytes decodes an image with an explicit WebP fallback for files
// the registered decoders reject.
func decodeImageBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

func encodeImage(img image.Image, ext string) ([]byte, error) {
	var buf bytes.Buffer

	switch strings.ToLower(ext) {
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: 90}); err != nil {
			return nil, err
		}
	default:
		format, err := imaging.FormatFromExtension(ext)
		if err != nil {
			return nil, fmt.Errorf("unsupported output format %q: %w", ext, err)
		}
		if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
