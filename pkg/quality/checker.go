// Package quality scores raw dataset images for training suitability:
// resolution, brightness, contrast, sharpness, file size and aspect ratio.
package quality

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"sort"

	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/dataset-converter/internal/utils"
)

// Thresholds holds the quality limits an image is judged against.
type Thresholds struct {
	MinWidth          int
	MinHeight         int
	RecommendedWidth  int
	RecommendedHeight int

	BrightnessMin        float64
	BrightnessMax        float64
	BrightnessOptimalMin float64
	BrightnessOptimalMax float64

	ContrastMin     float64
	ContrastOptimal float64

	BlurThreshold float64
	BlurWarning   float64

	FileSizeMin int64
	FileSizeMax int64

	AspectRatioMin float64
	AspectRatioMax float64
}

// DefaultThresholds returns the standard limits for YOLO training data.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinWidth:          320,
		MinHeight:         320,
		RecommendedWidth:  640,
		RecommendedHeight: 640,

		BrightnessMin:        30,
		BrightnessMax:        225,
		BrightnessOptimalMin: 50,
		BrightnessOptimalMax: 200,

		ContrastMin:     20,
		ContrastOptimal: 50,

		BlurThreshold: 100,
		BlurWarning:   200,

		FileSizeMin: 5 * 1024,
		FileSizeMax: 10 * 1024 * 1024,

		AspectRatioMin: 0.5,
		AspectRatioMax: 2.0,
	}
}

// IssueKind categorizes a quality problem.
type IssueKind string

// The known issue categories.
const (
	IssueResolution IssueKind = "resolution"
	IssueBrightness IssueKind = "brightness"
	IssueContrast   IssueKind = "contrast"
	IssueBlur       IssueKind = "blur"
	IssueFileSize   IssueKind = "file_size"
	IssueAspect     IssueKind = "aspect_ratio"
	IssueDecode     IssueKind = "decode_error"
)

// Issue is one quality problem found on one image.
type Issue struct {
	File     string    `json:"file"`
	Kind     IssueKind `json:"kind"`
	Severity string    `json:"severity"`
	Detail   string    `json:"detail"`
}

// ImageReport holds the measured properties of a single image.
type ImageReport struct {
	File        string  `json:"file"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FileSize    int64   `json:"file_size"`
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	BlurScore   float64 `json:"blur_score"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// FolderReport aggregates quality results for a dataset folder.
type FolderReport struct {
	TotalImages     int           `json:"total_images"`
	Checked         int           `json:"checked"`
	Reports         []ImageReport `json:"reports"`
	Issues          []Issue       `json:"issues,omitempty"`
	AvgWidth        int           `json:"avg_width"`
	AvgHeight       int           `json:"avg_height"`
	AvgBrightness   float64       `json:"avg_brightness"`
	AvgContrast     float64       `json:"avg_contrast"`
	AvgFileSize     int64         `json:"avg_file_size"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
}

// Checker measures dataset images against a set of thresholds.
type Checker struct {
	fs         afero.Fs
	thresholds Thresholds
}

// New creates a Checker with default thresholds on the OS filesystem.
func New() *Checker {
	return &Checker{fs: afero.NewOsFs(), thresholds: DefaultThresholds()}
}

// NewWithConfig creates a Checker with custom thresholds and filesystem.
func NewWithConfig(fs afero.Fs, thresholds Thresholds) *Checker {
	return &Checker{fs: fs, thresholds: thresholds}
}

// CheckImage measures one image file.
func (c *Checker) CheckImage(path string) (ImageReport, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return ImageReport{}, fmt.Errorf("failed to stat image: %w", err)
	}

	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return ImageReport{}, fmt.Errorf("failed to read image: %w", err)
	}

	img, err := decodeImageBytes(data)
	if err != nil {
		return ImageReport{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	brightness, contrast := measureBrightnessContrast(img)
	blur := measureBlur(img)

	aspect := 0.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}

	return ImageReport{
		File:        filepath.Base(path),
		Width:       width,
		Height:      height,
		FileSize:    info.Size(),
		Brightness:  brightness,
		Contrast:    contrast,
		BlurScore:   blur,
		AspectRatio: aspect,
	}, nil
}

// CheckFolder measures every image in a folder and aggregates the results.
func (c *Checker) CheckFolder(dir string) (*FolderReport, error) {
	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var images []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsImageFile(e.Name()) {
			images = append(images, e.Name())
		}
	}
	sort.Strings(images)

	if len(images) == 0 {
		return nil, fmt.Errorf("no image files found in %s", dir)
	}

	report := &FolderReport{TotalImages: len(images)}

	var totalW, totalH int
	var totalBrightness, totalContrast float64
	var totalSize int64

	for _, name := range images {
		ir, err := c.CheckImage(filepath.Join(dir, name))
		if err != nil {
			report.Issues = append(report.Issues, Issue{
				File: name, Kind: IssueDecode, Severity: "high", Detail: err.Error(),
			})
			continue
		}

		report.Checked++
		report.Reports = append(report.Reports, ir)
		totalW += ir.Width
		totalH += ir.Height
		totalBrightness += ir.Brightness
		totalContrast += ir.Contrast
		totalSize += ir.FileSize

		report.Issues = append(report.Issues, c.categorize(ir)...)
	}

	if report.Checked > 0 {
		report.AvgWidth = totalW / report.Checked
		report.AvgHeight = totalH / report.Checked
		report.AvgBrightness = totalBrightness / float64(report.Checked)
		report.AvgContrast = totalContrast / float64(report.Checked)
		report.AvgFileSize = totalSize / int64(report.Checked)
	}

	report.Score = qualityScore(report.TotalImages, report.Issues)
	report.Recommendations = recommendations(report.Issues)

	return report, nil
}

// categorize maps one image report onto the issue taxonomy.
func (c *Checker) categorize(r ImageReport) []Issue {
	t := c.thresholds
	var issues []Issue

	if r.Width < t.MinWidth || r.Height < t.MinHeight {
		severity := "medium"
		if r.Width < 224 || r.Height < 224 {
			severity = "high"
		}
		issues = append(issues, Issue{
			File: r.File, Kind: IssueResolution, Severity: severity,
			Detail: fmt.Sprintf("%dx%d, recommended at least %dx%d", r.Width, r.Height, t.RecommendedWidth, t.RecommendedHeight),
		})
	}

	if r.Brightness < t.BrightnessMin || r.Brightness > t.BrightnessMax {
		severity := "medium"
		if r.Brightness < 20 || r.Brightness > 240 {
			severity = "high"
		}
		problem := "too dark"
		if r.Brightness > t.BrightnessMax {
			problem = "too bright"
		}
		issues = append(issues, Issue{
			File: r.File, Kind: IssueBrightness, Severity: severity,
			Detail: fmt.Sprintf("%s (%.1f, optimal %.0f-%.0f)", problem, r.Brightness, t.BrightnessOptimalMin, t.BrightnessOptimalMax),
		})
	}

	if r.Contrast < t.ContrastMin {
		severity := "medium"
		if r.Contrast < 10 {
			severity = "high"
		}
		issues = append(issues, Issue{
			File: r.File, Kind: IssueContrast, Severity: severity,
			Detail: fmt.Sprintf("low contrast %.1f, recommended at least %.0f", r.Contrast, t.ContrastOptimal),
		})
	}

	if r.BlurScore < t.BlurThreshold {
		severity := "medium"
		if r.BlurScore < 50 {
			severity = "high"
		}
		issues = append(issues, Issue{
			File: r.File, Kind: IssueBlur, Severity: severity,
			Detail: fmt.Sprintf("blur score %.1f, recommended at least %.0f", r.BlurScore, t.BlurWarning),
		})
	}

	if r.FileSize < t.FileSizeMin {
		issues = append(issues, Issue{
			File: r.File, Kind: IssueFileSize, Severity: "medium",
			Detail: fmt.Sprintf("file too small: %s", utils.FormatFileSize(r.FileSize)),
		})
	} else if r.FileSize > t.FileSizeMax {
		issues = append(issues, Issue{
			File: r.File, Kind: IssueFileSize, Severity: "low",
			Detail: fmt.Sprintf("file too large: %s", utils.FormatFileSize(r.FileSize)),
		})
	}

	if r.AspectRatio < t.AspectRatioMin || r.AspectRatio > t.AspectRatioMax {
		issues = append(issues, Issue{
			File: r.File, Kind: IssueAspect, Severity: "low",
			Detail: fmt.Sprintf("aspect ratio %.2f:1 outside %.1f-%.1f:1", r.AspectRatio, t.AspectRatioMin, t.AspectRatioMax),
		})
	}

	return issues
}

// qualityScore is the share of images with no issues, on a 0-100 scale.
func qualityScore(total int, issues []Issue) int {
	if total == 0 {
		return 0
	}
	problem := make(map[string]bool)
	for _, issue := range issues {
		problem[issue.File] = true
	}
	healthy := total - len(problem)
	if healthy < 0 {
		healthy = 0
	}
	return healthy * 100 / total
}

func recommendations(issues []Issue) []string {
	if len(issues) == 0 {
		return []string{"No quality problems found."}
	}

	counts := make(map[IssueKind]int)
	for _, issue := range issues {
		counts[issue.Kind]++
	}

	var recs []string
	if n := counts[IssueResolution]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images are below the recommended resolution; consider resizing or recapturing them.", n))
	}
	if n := counts[IssueBlur]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images look blurry; replace them with sharper captures.", n))
	}
	if n := counts[IssueBrightness]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images have brightness problems; adjust exposure or lighting.", n))
	}
	if n := counts[IssueContrast]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images have low contrast; raise contrast in an image editor.", n))
	}
	if n := counts[IssueFileSize]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images have unusual file sizes; re-save them with appropriate quality settings.", n))
	}
	if n := counts[IssueDecode]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d images failed to decode; the files may be corrupt.", n))
	}
	recs = append(recs, "Re-run the quality check after fixing the flagged images.")
	return recs
}

// measureBrightnessContrast returns the mean luminance and the average
// per-channel standard deviation, both on the 0-255 scale.
func measureBrightnessContrast(img image.Image) (brightness, contrast float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0, 0
	}

	var sum [3]float64
	var sumSq [3]float64

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			ch := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			for i, v := range ch {
				sum[i] += v
				sumSq[i] += v * v
			}
		}
	}

	var meanTotal, stddevTotal float64
	for i := 0; i < 3; i++ {
		mean := sum[i] / n
		variance := sumSq[i]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		meanTotal += mean
		stddevTotal += math.Sqrt(variance)
	}

	return meanTotal / 3, stddevTotal / 3
}

// measureBlur returns the variance of a 4-neighbor Laplacian over the
// grayscale image. Sharp images produce high variance, blurred ones low.
func measureBlur(img image.Image) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray[y*w+x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}

	var sum, sumSq float64
	count := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := 4*gray[y*w+x] - gray[(y-1)*w+x] - gray[(y+1)*w+x] - gray[y*w+x-1] - gray[y*w+x+1]
			sum += lap
			sumSq += lap * lap
			count++
		}
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return variance
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
