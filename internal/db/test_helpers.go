package db

import (
	"testing"
)

func floatPtr(f float64) *float64 {
	return &f
}

// setupTestDB creates a fully migrated database under the test's temp
// directory and closes it when the test finishes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database
}

// seedItems inserts items with the given IDs into the pool.
func seedItems(t *testing.T, database *DB, itemIDs ...string) {
	t.Helper()

	items := make([]Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, Item{
			ItemID:    id,
			Text:      "sample text for " + id,
			Source:    "twitter",
			Language:  "hi-en",
			CodeMixed: true,
		})
	}
	if _, err := database.InsertItems(items); err != nil {
		t.Fatalf("InsertItems failed: %v", err)
	}
}

// seedAnnotatedBatch creates a pilot batch over three items with three
// tasks and a spread of annotator judgements: the first task has a 2-1
// toxic majority, the second a unanimous non-toxic pair, the third an
// even 1-1 split.
func seedAnnotatedBatch(t *testing.T, database *DB) (*Batch, []Task) {
	t.Helper()

	seedItems(t, database, "item-1", "item-2", "item-3")

	batch := &Batch{Name: "pilot-2025-11", Kind: PoolPilot, Seed: 42}
	if err := database.CreateBatch(batch); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	tasks, err := database.CreateTasksForBatch(batch.BatchID, []string{"item-1", "item-2", "item-3"})
	if err != nil {
		t.Fatalf("CreateTasksForBatch failed: %v", err)
	}

	annotations := []Annotation{
		{TaskID: tasks[0].TaskID, AnnotatorID: "ann-a", Label: 1, ToxicSubtypes: []string{"insult"}, Confidence: "high"},
		{TaskID: tasks[0].TaskID, AnnotatorID: "ann-b", Label: 1, ToxicSubtypes: []string{"hate", "insult"}, Confidence: "medium"},
		{TaskID: tasks[0].TaskID, AnnotatorID: "ann-c", Label: 0, Confidence: "low"},
		{TaskID: tasks[1].TaskID, AnnotatorID: "ann-a", Label: 0, Confidence: "medium"},
		{TaskID: tasks[1].TaskID, AnnotatorID: "ann-b", Label: 0, Confidence: "low"},
		{TaskID: tasks[2].TaskID, AnnotatorID: "ann-a", Label: 1, ToxicSubtypes: []string{"threat"}, Confidence: "high"},
		{TaskID: tasks[2].TaskID, AnnotatorID: "ann-b", Label: 0, Confidence: "medium"},
	}
	if _, err := database.ImportAnnotations(annotations); err != nil {
		t.Fatalf("ImportAnnotations failed: %v", err)
	}

	return batch, tasks
}
