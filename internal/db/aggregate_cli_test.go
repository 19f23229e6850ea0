package db

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
)

func TestAggregateCLIRun(t *testing.T) {
	database := setupTestDB(t)
	seedAnnotatedBatch(t, database)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{TieBreakLabel: 1}, 0.5, &buf)

	if err := cli.Run(context.Background(), "pilot-2025-11"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aggregated 3 tasks") {
		t.Errorf("expected run summary, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "majority_vote") {
		t.Errorf("expected method in summary, got: %s", buf.String())
	}
}

func TestAggregateCLIRunUnknownBatch(t *testing.T) {
	database := setupTestDB(t)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{}, 0.5, &buf)

	if err := cli.Run(context.Background(), "no-such-batch"); err == nil {
		t.Fatal("expected error for unknown batch")
	}
}

func TestAggregateCLIAnalyse(t *testing.T) {
	database := setupTestDB(t)
	batch, _ := seedAnnotatedBatch(t, database)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{TieBreakLabel: 1}, 0.6, &buf)

	worker := NewAggregationWorker(database, cli.Config)
	if _, err := worker.RunBatch(context.Background(), batch.BatchID); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}

	stats, err := cli.Analyse(context.Background())
	if err != nil {
		t.Fatalf("Analyse failed: %v", err)
	}
	if stats.TotalLabels != 3 {
		t.Errorf("expected 3 labels, got %d", stats.TotalLabels)
	}
	if stats.MethodCounts[aggregate.MethodMajorityVote] != 3 {
		t.Errorf("expected 3 majority_vote labels, got %v", stats.MethodCounts)
	}
	if stats.TieBrokenCount != 1 {
		t.Errorf("expected 1 tie-broken label, got %d", stats.TieBrokenCount)
	}

	out := buf.String()
	if !strings.Contains(out, "Total labels: 3") {
		t.Errorf("expected total in output, got: %s", out)
	}
	// The split task sits at 0.5 agreement, under the 0.6 threshold.
	if !strings.Contains(out, "⚠️") || !strings.Contains(out, "adjudicate template") {
		t.Errorf("expected low-agreement warning with adjudication hint, got: %s", out)
	}
}

func TestAggregateCLIAnalyseEmpty(t *testing.T) {
	database := setupTestDB(t)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{}, 0.5, &buf)

	stats, err := cli.Analyse(context.Background())
	if err != nil {
		t.Fatalf("Analyse failed: %v", err)
	}
	if stats.TotalLabels != 0 {
		t.Errorf("expected no labels, got %d", stats.TotalLabels)
	}
	if !strings.Contains(buf.String(), "No consensus labels yet") {
		t.Errorf("expected empty-state hint, got: %s", buf.String())
	}
}

func TestAggregateCLIRebuild(t *testing.T) {
	database := setupTestDB(t)
	batch, _ := seedAnnotatedBatch(t, database)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{TieBreakLabel: 1}, 0.5, &buf)

	if err := cli.Run(context.Background(), "pilot-2025-11"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	buf.Reset()
	if err := cli.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Deleted 3 existing labels") {
		t.Errorf("expected delete count in output, got: %s", out)
	}
	if !strings.Contains(out, "Rebuild complete") {
		t.Errorf("expected completion message, got: %s", out)
	}

	labels, err := database.ListAggregatedLabelsForBatch(batch.BatchID)
	if err != nil {
		t.Fatalf("ListAggregatedLabelsForBatch failed: %v", err)
	}
	if len(labels) != 3 {
		t.Errorf("expected 3 labels after rebuild, got %d", len(labels))
	}
}

func TestAggregateCLIDelete(t *testing.T) {
	database := setupTestDB(t)
	seedAnnotatedBatch(t, database)

	var buf bytes.Buffer
	cli := NewAggregateCLI(database, aggregate.Config{TieBreakLabel: 1}, 0.5, &buf)

	if err := cli.Run(context.Background(), "pilot-2025-11"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	deleted, err := cli.Delete(context.Background(), aggregate.MethodMajorityVote)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted labels, got %d", deleted)
	}

	stats, err := database.AnalyseAggregation(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("AnalyseAggregation failed: %v", err)
	}
	if stats.TotalLabels != 0 {
		t.Errorf("expected no labels after delete, got %d", stats.TotalLabels)
	}
}

func TestAggregateCLIPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	cli := NewAggregateCLI(nil, aggregate.Config{}, 0.5, &buf)

	cli.PrintUsage()
	if !strings.Contains(buf.String(), "aggregate <command>") {
		t.Errorf("expected usage text, got: %s", buf.String())
	}
}
