package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// writeAnnotation writes a labelme JSON with one rectangle per label.
func writeAnnotation(t *testing.T, fs afero.Fs, path string, labels ...string) {
	t.Helper()

	var shapes []string
	for i, label := range labels {
		x := float64(10 * (i + 1))
		shapes = append(shapes, fmt.Sprintf(
			`{"label": %q, "shape_type": "rectangle", "points": [[%v, 10], [%v, 50]]}`,
			label, x, x+40))
	}

	doc := fmt.Sprintf(`{"imageWidth": 640, "imageHeight": 480, "shapes": [%s]}`,
		strings.Join(shapes, ","))
	if err := afero.WriteFile(fs, path, []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write annotation %s: %v", path, err)
	}
}

func writeFakeImage(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte("not-a-real-image"), 0644); err != nil {
		t.Fatalf("failed to write image %s: %v", path, err)
	}
}

func writePNG(t *testing.T, fs afero.Fs, path string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write png %s: %v", path, err)
	}
}

func seededConverter() (*Converter, afero.Fs, *int64) {
	fs := afero.NewMemMapFs()
	seed := int64(7)
	return NewWithFs(fs), fs, &seed
}

func TestConvertSingleClass(t *testing.T) {
	// 10 images, 8 with a "car" annotation, 2 unlabeled.
	c, fs, seed := seededConverter()
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("img_%02d", i)
		writeFakeImage(t, fs, "/in/"+name+".jpg")
		if i < 8 {
			writeAnnotation(t, fs, "/in/"+name+".json", "car")
		}
	}

	result, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if len(result.ClassMapping) != 1 || result.ClassMapping["car"] != 0 {
		t.Errorf("class mapping = %v, want {car:0}", result.ClassMapping)
	}
	if result.Stats.ConvertedImages != 8 {
		t.Errorf("converted = %d, want 8", result.Stats.ConvertedImages)
	}
	if result.Stats.SkippedImages != 0 {
		t.Errorf("skipped = %d, want 0", result.Stats.SkippedImages)
	}
	if result.Stats.TotalAnnotations != 8 {
		t.Errorf("annotations = %d, want 8", result.Stats.TotalAnnotations)
	}
	if result.Stats.ClassCounts["car"] != 8 {
		t.Errorf("car count = %d, want 8", result.Stats.ClassCounts["car"])
	}

	// The two unlabeled images never enter the run; the folder summary
	// reports them instead.
	summary, err := pairs.Summarize(fs, "/in")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.UnlabeledCount != 2 {
		t.Errorf("unlabeled = %d, want 2", summary.UnlabeledCount)
	}
}

func TestConvertEmptyShapesWritesEmptyLabelFile(t *testing.T) {
	c, fs, seed := seededConverter()

	writeFakeImage(t, fs, "/in/empty.jpg")
	if err := afero.WriteFile(fs, "/in/empty.json",
		[]byte(`{"imageWidth": 640, "imageHeight": 480, "shapes": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	// A second labeled pair keeps the class vocabulary non-empty.
	writeFakeImage(t, fs, "/in/full.jpg")
	writeAnnotation(t, fs, "/in/full.json", "car")

	result, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if result.Stats.ConvertedImages != 2 {
		t.Fatalf("converted = %d, want 2", result.Stats.ConvertedImages)
	}
	if len(result.Errors()) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors())
	}

	var labelPath string
	for _, split := range []string{SplitTrain, SplitVal} {
		p := filepath.Join("/out/labels", split, "empty.txt")
		if ok, _ := afero.Exists(fs, p); ok {
			labelPath = p
		}
	}
	if labelPath == "" {
		t.Fatal("label file for empty.jpg not written")
	}

	data, err := afero.ReadFile(fs, labelPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("label file for shapeless annotation should be empty, got %q", data)
	}
}

func TestConvertMalformedAnnotationIsIsolated(t *testing.T) {
	c, fs, seed := seededConverter()

	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("ok_%d", i)
		writeFakeImage(t, fs, "/in/"+name+".jpg")
		writeAnnotation(t, fs, "/in/"+name+".json", "car")
	}
	writeFakeImage(t, fs, "/in/broken.jpg")
	if err := afero.WriteFile(fs, "/in/broken.json", []byte(`{"imageWidth": `), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Seed: seed})
	if err != nil {
		t.Fatalf("Convert must not abort on one malformed file: %v", err)
	}

	if result.Stats.ConvertedImages != 4 {
		t.Errorf("converted = %d, want 4", result.Stats.ConvertedImages)
	}
	if result.Stats.SkippedImages != 1 {
		t.Errorf("skipped = %d, want 1", result.Stats.SkippedImages)
	}

	found := false
	for _, fe := range result.Errors() {
		if fe.File == "broken.json" {
			found = true
		}
	}
	// The registry scan and the conversion step each record the parse
	// failure; at least one entry must name the file.
	if !found {
		t.Errorf("errors = %v, want an entry for broken.json", result.Errors())
	}
}

func TestConvertStructuralErrors(t *testing.T) {
	c, fs, _ := seededConverter()

	if _, err := c.Convert(Options{InputDir: "/missing", OutputDir: "/out"}); err == nil {
		t.Error("expected error for missing input folder")
	}

	if err := fs.MkdirAll("/empty", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Convert(Options{InputDir: "/empty", OutputDir: "/out"}); err == nil {
		t.Error("expected error for folder without pairs")
	}

	// Pairs exist but no rectangle carries a label.
	writeFakeImage(t, fs, "/nolabel/a.jpg")
	if err := afero.WriteFile(fs, "/nolabel/a.json",
		[]byte(`{"imageWidth": 640, "imageHeight": 480, "shapes": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Convert(Options{InputDir: "/nolabel", OutputDir: "/out"}); err == nil {
		t.Error("expected error for empty class vocabulary")
	}

	// No output may exist after a structural failure.
	if ok, _ := afero.DirExists(fs, "/out"); ok {
		t.Error("output tree must not be created on structural failure")
	}

	writeFakeImage(t, fs, "/in/a.jpg")
	writeAnnotation(t, fs, "/in/a.json", "car")
	if _, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", TrainRatio: 1.5}); err == nil {
		t.Error("expected error for out-of-range train ratio")
	}
}

func TestConvertOutputLayout(t *testing.T) {
	c, fs, seed := seededConverter()

	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("img_%02d", i)
		writeFakeImage(t, fs, "/in/"+name+".jpg")
		writeAnnotation(t, fs, "/in/"+name+".json", "car", "person")
	}

	result, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", TrainRatio: 0.8, Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if result.Stats.TrainImages != 8 || result.Stats.ValImages != 2 {
		t.Errorf("train/val = %d/%d, want 8/2", result.Stats.TrainImages, result.Stats.ValImages)
	}

	for _, sub := range outputSubdirs {
		entries, err := afero.ReadDir(fs, filepath.Join("/out", sub))
		if err != nil {
			t.Fatalf("missing output subdir %s: %v", sub, err)
		}
		want := 8
		if strings.HasSuffix(sub, SplitVal) {
			want = 2
		}
		if len(entries) != want {
			t.Errorf("%s holds %d entries, want %d", sub, len(entries), want)
		}
	}

	classes, err := afero.ReadFile(fs, "/out/"+ClassesFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(classes) != "car\nperson\n" {
		t.Errorf("classes.names = %q, want sorted labels", classes)
	}

	for _, name := range []string{DescriptorFile, ReadmeFile} {
		if ok, _ := afero.Exists(fs, "/out/"+name); !ok {
			t.Errorf("config file %s not written", name)
		}
	}

	descriptor, err := afero.ReadFile(fs, "/out/"+DescriptorFile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"nc: 2", "train: images/train", "val: images/val", "- car", "- person"} {
		if !strings.Contains(string(descriptor), want) {
			t.Errorf("dataset.yaml missing %q:\n%s", want, descriptor)
		}
	}
}

func TestConvertSkipImageCopy(t *testing.T) {
	c, fs, seed := seededConverter()

	writeFakeImage(t, fs, "/in/a.jpg")
	writeAnnotation(t, fs, "/in/a.json", "car")

	_, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", SkipImageCopy: true, Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	for _, split := range []string{SplitTrain, SplitVal} {
		entries, err := afero.ReadDir(fs, filepath.Join("/out/images", split))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("images/%s holds %d entries, want 0 with copy disabled", split, len(entries))
		}
	}

	// Label files are written regardless.
	labelTrain, _ := afero.ReadDir(fs, "/out/labels/"+SplitTrain)
	labelVal, _ := afero.ReadDir(fs, "/out/labels/"+SplitVal)
	if len(labelTrain)+len(labelVal) != 1 {
		t.Error("label file missing with image copy disabled")
	}
}

func TestConvertCopiesImageBytes(t *testing.T) {
	c, fs, seed := seededConverter()

	writeFakeImage(t, fs, "/in/a.jpg")
	writeAnnotation(t, fs, "/in/a.json", "car")

	_, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	src, _ := afero.ReadFile(fs, "/in/a.jpg")
	var dst []byte
	for _, split := range []string{SplitTrain, SplitVal} {
		if data, err := afero.ReadFile(fs, filepath.Join("/out/images", split, "a.jpg")); err == nil {
			dst = data
		}
	}
	if !bytes.Equal(src, dst) {
		t.Error("image copy is not byte-for-byte")
	}
}

func TestConvertResize(t *testing.T) {
	c, fs, seed := seededConverter()

	writePNG(t, fs, "/in/a.png", 640, 480)
	writeAnnotation(t, fs, "/in/a.json", "car")

	target := [2]int{320, 240}
	_, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Resize: &target, Seed: seed})
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	var data []byte
	for _, split := range []string{SplitTrain, SplitVal} {
		if d, err := afero.ReadFile(fs, filepath.Join("/out/images", split, "a.png")); err == nil {
			data = d
		}
	}
	if data == nil {
		t.Fatal("resized image not written")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode resized output: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("resized to %dx%d, want 320x240", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEmitConfigsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	mapping := mappingFor("car", "person", "truck")

	if err := fs.MkdirAll("/out", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := emitConfigs(fs, "/out", mapping); err != nil {
		t.Fatalf("emitConfigs failed: %v", err)
	}
	first, _ := afero.ReadFile(fs, "/out/"+ClassesFile)
	firstYaml, _ := afero.ReadFile(fs, "/out/"+DescriptorFile)

	if _, err := emitConfigs(fs, "/out", mapping); err != nil {
		t.Fatalf("emitConfigs re-run failed: %v", err)
	}
	second, _ := afero.ReadFile(fs, "/out/"+ClassesFile)
	secondYaml, _ := afero.ReadFile(fs, "/out/"+DescriptorFile)

	if !bytes.Equal(first, second) {
		t.Error("classes.names differs between identical runs")
	}
	if !bytes.Equal(firstYaml, secondYaml) {
		t.Error("dataset.yaml differs between identical runs")
	}
}

func BenchmarkConvert(b *testing.B) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("img_%03d", i)
		_ = afero.WriteFile(fs, "/in/"+name+".jpg", []byte("fake"), 0644)
		doc := `{"imageWidth": 640, "imageHeight": 480, "shapes": [{"label": "car", "shape_type": "rectangle", "points": [[10, 10], [50, 50]]}]}`
		_ = afero.WriteFile(fs, "/in/"+name+".json", []byte(doc), 0644)
	}
	c := NewWithFs(fs)
	seed := int64(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Convert(Options{InputDir: "/in", OutputDir: "/out", Seed: &seed}); err != nil {
			b.Fatal(err)
		}
	}
}
