package estimator

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"

	"github.com/menta2k/dataset-converter/pkg/pairs"
)

// buildFolder writes n image/annotation pairs, each annotated with the given
// labels (one rectangle per label).
func buildFolder(t *testing.T, fs afero.Fs, dir string, n int, labels ...string) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s/img_%03d", dir, i)
		if err := afero.WriteFile(fs, name+".jpg", []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		doc := `{"imageWidth": 640, "imageHeight": 480, "shapes": [`
		for j, label := range labels {
			if j > 0 {
				doc += ","
			}
			doc += fmt.Sprintf(`{"label": %q, "shape_type": "rectangle", "points": [[10, 10], [50, 50]]}`, label)
		}
		doc += `]}`
		if err := afero.WriteFile(fs, name+".json", []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestJudgeComplexity(t *testing.T) {
	cases := []struct {
		class string
		want  Complexity
	}{
		{"car", SimpleObjects},
		{"red_car", SimpleObjects},
		{"Person", SimpleObjects},
		{"screw", ComplexObjects},
		{"text_region", ComplexObjects},
		{"chair", MediumObjects},
		{"traffic_sign", MediumObjects},
	}
	for _, c := range cases {
		if got := JudgeComplexity(c.class); got != c.want {
			t.Errorf("JudgeComplexity(%q) = %s, want %s", c.class, got, c.want)
		}
	}
}

func TestCountClasses(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 5, "car", "car", "screw")

	pairList, err := pairs.Scan(fs, "/data")
	if err != nil {
		t.Fatal(err)
	}

	counts := NewWithFs(fs).CountClasses("/data", pairList)
	if counts["car"] != 10 {
		t.Errorf("car count = %d, want 10", counts["car"])
	}
	if counts["screw"] != 5 {
		t.Errorf("screw count = %d, want 5", counts["screw"])
	}
}

func TestCountClassesToleratesBrokenFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 2, "car")
	_ = afero.WriteFile(fs, "/data/broken.jpg", []byte("x"), 0644)
	_ = afero.WriteFile(fs, "/data/broken.json", []byte(`{"bad"`), 0644)

	pairList, err := pairs.Scan(fs, "/data")
	if err != nil {
		t.Fatal(err)
	}

	counts := NewWithFs(fs).CountClasses("/data", pairList)
	if counts["car"] != 2 {
		t.Errorf("car count = %d, want 2 despite broken file", counts["car"])
	}
}

func TestRecommend(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 30, "car")

	rec, err := NewWithFs(fs).Recommend("/data", Target70, 640)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	cr, ok := rec.Classes["car"]
	if !ok {
		t.Fatalf("missing class in recommendation: %v", rec.Classes)
	}
	// Simple object at the 70% target on 640px images: 120 samples.
	if cr.Needed != 120 {
		t.Errorf("needed = %d, want 120", cr.Needed)
	}
	if cr.Current != 30 || cr.Shortage != 90 {
		t.Errorf("current/shortage = %d/%d, want 30/90", cr.Current, cr.Shortage)
	}
	if cr.Progress != 25 {
		t.Errorf("progress = %d, want 25", cr.Progress)
	}
	if cr.Complexity != SimpleObjects {
		t.Errorf("complexity = %s, want simple", cr.Complexity)
	}
	if rec.LabelRate != 100 {
		t.Errorf("label rate = %v, want 100", rec.LabelRate)
	}
	if len(rec.NextSteps) == 0 {
		t.Error("expected next steps for an unfinished dataset")
	}
}

func TestRecommendSizeScaling(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 10, "car")
	e := NewWithFs(fs)

	small, err := e.Recommend("/data", Target80, 320)
	if err != nil {
		t.Fatal(err)
	}
	large, err := e.Recommend("/data", Target80, 1280)
	if err != nil {
		t.Fatal(err)
	}

	// Simple object at 80%: 200 baseline, scaled by 0.8 and 1.4.
	if small.Classes["car"].Needed != 160 {
		t.Errorf("needed at 320px = %d, want 160", small.Classes["car"].Needed)
	}
	if large.Classes["car"].Needed != 280 {
		t.Errorf("needed at 1280px = %d, want 280", large.Classes["car"].Needed)
	}
}

func TestRecommendUnknownSizeFallsBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 10, "car")

	rec, err := NewWithFs(fs).Recommend("/data", Target70, 999)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if rec.ImageSize != 640 {
		t.Errorf("image size = %d, want 640 fallback", rec.ImageSize)
	}
	if rec.Classes["car"].Needed != 120 {
		t.Errorf("needed = %d, want the 640 baseline", rec.Classes["car"].Needed)
	}
}

func TestRecommendSatisfiedClass(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 150, "car")

	rec, err := NewWithFs(fs).Recommend("/data", Target70, 640)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	cr := rec.Classes["car"]
	if cr.Shortage != 0 || cr.Progress != 100 {
		t.Errorf("satisfied class = %+v, want shortage 0 and progress 100", cr)
	}
	if cr.NextAction != "start training" {
		t.Errorf("next action = %q, want start training", cr.NextAction)
	}
}

func TestRecommendErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	buildFolder(t, fs, "/data", 5, "car")

	e := NewWithFs(fs)
	if _, err := e.Recommend("/data", Target("95"), 640); err == nil {
		t.Error("expected error for unknown target")
	}

	if err := fs.MkdirAll("/empty", 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Recommend("/empty", Target70, 640); err == nil {
		t.Error("expected error for folder without pairs")
	}

	// Pairs whose annotations carry no rectangle labels.
	buildFolder(t, fs, "/nolabels", 3)
	if _, err := e.Recommend("/nolabels", Target70, 640); err == nil {
		t.Error("expected error for empty class vocabulary")
	}
}
