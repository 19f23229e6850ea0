package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhvani-data/annotation.report/internal/db"
)

func plotDashboard(t *testing.T) *Dashboard {
	t.Helper()
	tasks, gold := goldFixture()
	annotations := []db.Annotation{
		{TaskID: "t1", AnnotatorID: "ann-a", Label: 1, ToxicSubtypes: []string{"hate"}},
		{TaskID: "t2", AnnotatorID: "ann-a", Label: 0},
		{TaskID: "t1", AnnotatorID: "ann-b", Label: 0},
		{TaskID: "t2", AnnotatorID: "ann-b", Label: 0},
	}
	return Score(annotations, tasks, gold, Config{
		AccuracyFloor: 0.80,
		Subtypes:      []string{"hate", "threat"},
	})
}

func TestRenderAccuracyPlot(t *testing.T) {
	dashboard := plotDashboard(t)
	path := filepath.Join(t.TempDir(), "accuracy.png")

	if err := RenderAccuracyPlot(dashboard, path); err != nil {
		t.Fatalf("RenderAccuracyPlot failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestRenderSubtypeF1Plot(t *testing.T) {
	dashboard := plotDashboard(t)
	path := filepath.Join(t.TempDir(), "subtype_f1.png")

	if err := RenderSubtypeF1Plot(dashboard, []string{"hate", "threat"}, path); err != nil {
		t.Fatalf("RenderSubtypeF1Plot failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestRenderAccuracyPlotNoScores(t *testing.T) {
	dashboard := &Dashboard{AccuracyFloor: 0.80}
	path := filepath.Join(t.TempDir(), "empty.png")

	if err := RenderAccuracyPlot(dashboard, path); err == nil {
		t.Fatal("expected error with no scored annotators")
	}
}
