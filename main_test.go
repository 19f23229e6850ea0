package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
	"github.com/dhvani-data/annotation.report/internal/config"
	"github.com/dhvani-data/annotation.report/internal/iaa"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write corpus file: %v", err)
	}
	return path
}

func TestReadCorpus(t *testing.T) {
	path := writeCorpusFile(t, `{"id":"item-1","text":"yeh movie bakwas hai","source":"twitter","language":"hi-en","code_mixed":true}

{"id":"item-2","text":"what a day","source":"youtube","language":"en","split":"train","code_mixed":false}
`)

	items, err := readCorpus(path)
	if err != nil {
		t.Fatalf("readCorpus returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].ItemID != "item-1" || !items[0].CodeMixed {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
	if items[1].Split != "train" {
		t.Errorf("Expected split train, got %q", items[1].Split)
	}
}

func TestReadCorpusMalformedLine(t *testing.T) {
	path := writeCorpusFile(t, `{"id":"item-1","text":"ok"}
{not json}
`)
	if _, err := readCorpus(path); err == nil {
		t.Error("Expected error for malformed line, got nil")
	}
}

func TestReadCorpusMissingID(t *testing.T) {
	path := writeCorpusFile(t, `{"text":"no id here"}`+"\n")
	if _, err := readCorpus(path); err == nil {
		t.Error("Expected error for record without id, got nil")
	}
}

func TestReadCorpusMissingFile(t *testing.T) {
	if _, err := readCorpus(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestWriteDisagreementsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disagreements.csv")
	writeDisagreementsCSV(path, []iaa.Disagreement{
		{TaskID: "task-1", Labels: map[string]int{"ann-b": 0, "ann-a": 1}},
	})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d records", len(records))
	}
	// Votes are ordered by annotator within each task.
	if records[1][1] != "ann-a" || records[1][2] != "1" {
		t.Errorf("Unexpected first vote row: %v", records[1])
	}
	if records[2][1] != "ann-b" || records[2][2] != "0" {
		t.Errorf("Unexpected second vote row: %v", records[2])
	}
}

func TestAggregateConfigDefaults(t *testing.T) {
	got := aggregateConfig(config.EmptyEngineConfig())

	if got.Method != aggregate.MethodMajorityVote {
		t.Errorf("Expected method %q, got %q", aggregate.MethodMajorityVote, got.Method)
	}
	if got.TieBreakLabel != 1 {
		t.Errorf("Expected tie-break label 1, got %d", got.TieBreakLabel)
	}
	if got.WeightLow != 1 || got.WeightMedium != 2 || got.WeightHigh != 3 {
		t.Errorf("Unexpected confidence weights: %+v", got)
	}
}
