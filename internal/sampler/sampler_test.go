package sampler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dhvani-data/annotation.report/internal/db"
)

// makePool builds a pool with the given number of code-mixed and
// monolingual items.
func makePool(codeMixed, monolingual int) []db.Item {
	var pool []db.Item
	for i := 0; i < codeMixed; i++ {
		pool = append(pool, db.Item{
			ItemID:    fmt.Sprintf("cm-%04d", i),
			Text:      fmt.Sprintf("code mixed text %d", i),
			CodeMixed: true,
		})
	}
	for i := 0; i < monolingual; i++ {
		pool = append(pool, db.Item{
			ItemID: fmt.Sprintf("mono-%04d", i),
			Text:   fmt.Sprintf("monolingual text %d", i),
		})
	}
	return pool
}

func TestSampleBalancedStrata(t *testing.T) {
	pool := makePool(200, 200)

	result, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(result.Items) != 100 {
		t.Errorf("expected 100 items, got %d", len(result.Items))
	}
	if result.CodeMixedCount != 50 {
		t.Errorf("expected 50 code-mixed items, got %d", result.CodeMixedCount)
	}
	if result.Backfilled != 0 {
		t.Errorf("expected no backfill, got %d", result.Backfilled)
	}
}

func TestSampleDeterministic(t *testing.T) {
	pool := makePool(150, 150)

	first, err := Sample(pool, Config{Size: 60, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	second, err := Sample(pool, Config{Size: 60, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(first.Items) != len(second.Items) {
		t.Fatalf("runs returned different sizes: %d vs %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].ItemID != second.Items[i].ItemID {
			t.Errorf("item %d differs between runs: %s vs %s", i, first.Items[i].ItemID, second.Items[i].ItemID)
		}
	}
}

func TestSampleDeterministicAcrossInputOrder(t *testing.T) {
	pool := makePool(100, 100)
	reversed := make([]db.Item, len(pool))
	for i, item := range pool {
		reversed[len(pool)-1-i] = item
	}

	first, err := Sample(pool, Config{Size: 40, CodeMixedFraction: 0.5, Seed: 7})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	second, err := Sample(reversed, Config{Size: 40, CodeMixedFraction: 0.5, Seed: 7})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	for i := range first.Items {
		if first.Items[i].ItemID != second.Items[i].ItemID {
			t.Errorf("item %d differs with reordered input: %s vs %s", i, first.Items[i].ItemID, second.Items[i].ItemID)
		}
	}
}

func TestSampleSeedChangesSelection(t *testing.T) {
	pool := makePool(500, 500)

	first, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	second, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 999})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	same := true
	for i := range first.Items {
		if first.Items[i].ItemID != second.Items[i].ItemID {
			same = false
			break
		}
	}
	if same {
		t.Error("expected different seeds to select different items")
	}
}

func TestSampleBackfillsShortStratum(t *testing.T) {
	// Only 20 code-mixed items available for a 50/50 split of 100.
	pool := makePool(20, 200)

	result, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(result.Items) != 100 {
		t.Errorf("expected 100 items after backfill, got %d", len(result.Items))
	}
	if result.CodeMixedCount != 20 {
		t.Errorf("expected all 20 code-mixed items selected, got %d", result.CodeMixedCount)
	}
	if result.Backfilled != 30 {
		t.Errorf("expected 30 backfilled items, got %d", result.Backfilled)
	}
}

func TestSampleBackfillsFromCodeMixed(t *testing.T) {
	// Only 10 monolingual items available for a 50/50 split of 100.
	pool := makePool(200, 10)

	result, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(result.Items) != 100 {
		t.Errorf("expected 100 items after backfill, got %d", len(result.Items))
	}
	if result.CodeMixedCount != 90 {
		t.Errorf("expected 90 code-mixed items, got %d", result.CodeMixedCount)
	}
	if result.Backfilled != 40 {
		t.Errorf("expected 40 backfilled items, got %d", result.Backfilled)
	}
}

func TestSampleInsufficientPool(t *testing.T) {
	pool := makePool(5, 5)

	_, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err == nil {
		t.Fatal("expected error for undersized pool, got nil")
	}

	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("expected InsufficientPoolError, got %T: %v", err, err)
	}
	if poolErr.Requested != 100 || poolErr.Available != 10 {
		t.Errorf("expected requested=100 available=10, got requested=%d available=%d",
			poolErr.Requested, poolErr.Available)
	}
}

func TestSampleExcludesListedItems(t *testing.T) {
	pool := makePool(30, 30)

	exclude := make(map[string]bool)
	for _, item := range pool[:10] {
		exclude[item.ItemID] = true
	}

	result, err := Sample(pool, Config{Size: 50, CodeMixedFraction: 0.5, Seed: 42, Exclude: exclude})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	for _, item := range result.Items {
		if exclude[item.ItemID] {
			t.Errorf("excluded item %s was selected", item.ItemID)
		}
	}
}

func TestSampleDisjointDraws(t *testing.T) {
	// Sampling a second batch with the first batch excluded must not
	// overlap it, mirroring the pilot/gold split.
	pool := makePool(200, 200)

	pilot, err := Sample(pool, Config{Size: 100, CodeMixedFraction: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("pilot sample failed: %v", err)
	}

	exclude := make(map[string]bool)
	for _, item := range pilot.Items {
		exclude[item.ItemID] = true
	}

	gold, err := Sample(pool, Config{Size: 50, CodeMixedFraction: 0.5, Seed: 999, Exclude: exclude})
	if err != nil {
		t.Fatalf("gold sample failed: %v", err)
	}

	if len(gold.Items) != 50 {
		t.Errorf("expected 50 gold items, got %d", len(gold.Items))
	}
	for _, item := range gold.Items {
		if exclude[item.ItemID] {
			t.Errorf("gold sample reused pilot item %s", item.ItemID)
		}
	}
}

func TestSampleRejectsInvalidConfig(t *testing.T) {
	pool := makePool(10, 10)

	if _, err := Sample(pool, Config{Size: 0, CodeMixedFraction: 0.5, Seed: 1}); err == nil {
		t.Error("expected error for zero size, got nil")
	}
	if _, err := Sample(pool, Config{Size: 10, CodeMixedFraction: 1.5, Seed: 1}); err == nil {
		t.Error("expected error for fraction > 1, got nil")
	}
}
