// Package sampler draws deterministic stratified samples of items for
// annotation batches.
package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// Config controls a sampling run.
type Config struct {
	Size              int             // number of items to draw
	CodeMixedFraction float64         // target fraction of code-mixed items
	Seed              int64           // shuffle seed; same seed and pool give the same sample
	Exclude           map[string]bool // item IDs barred from selection
}

// Result is the outcome of a sampling run. Items are returned sorted by
// item ID.
type Result struct {
	Items          []db.Item
	CodeMixedCount int
	Backfilled     int // items drawn from the other stratum to reach Size
}

// InsufficientPoolError reports a pool that cannot fill the requested
// sample size even with backfilling.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient pool: requested %d items, %d available", e.Requested, e.Available)
}

// Sample draws cfg.Size items from pool, targeting cfg.CodeMixedFraction
// code-mixed items. When one stratum runs short the shortfall is
// backfilled from the other stratum and logged; only a pool too small to
// fill the total sample is an error.
func Sample(pool []db.Item, cfg Config) (Result, error) {
	if cfg.Size <= 0 {
		return Result{}, fmt.Errorf("sample size must be positive, got %d", cfg.Size)
	}
	if cfg.CodeMixedFraction < 0 || cfg.CodeMixedFraction > 1 {
		return Result{}, fmt.Errorf("code-mixed fraction must be between 0 and 1, got %f", cfg.CodeMixedFraction)
	}

	// Partition the eligible pool into strata.
	var codeMixed, monolingual []db.Item
	for _, item := range pool {
		if cfg.Exclude[item.ItemID] {
			continue
		}
		if item.CodeMixed {
			codeMixed = append(codeMixed, item)
		} else {
			monolingual = append(monolingual, item)
		}
	}

	available := len(codeMixed) + len(monolingual)
	if available < cfg.Size {
		return Result{}, &InsufficientPoolError{Requested: cfg.Size, Available: available}
	}

	// Shuffle each stratum deterministically. Strata are sorted by item
	// ID first so the draw depends only on pool membership and seed, not
	// on input order.
	rng := rand.New(rand.NewSource(cfg.Seed))
	shuffle(codeMixed, rng)
	shuffle(monolingual, rng)

	wantCodeMixed := int(math.Round(float64(cfg.Size) * cfg.CodeMixedFraction))
	if wantCodeMixed > cfg.Size {
		wantCodeMixed = cfg.Size
	}
	wantMonolingual := cfg.Size - wantCodeMixed

	takeCodeMixed := min(wantCodeMixed, len(codeMixed))
	takeMonolingual := min(wantMonolingual, len(monolingual))

	if takeCodeMixed < wantCodeMixed {
		monitoring.Logf("sampler: code-mixed stratum short by %d (wanted %d, have %d); backfilling from monolingual",
			wantCodeMixed-takeCodeMixed, wantCodeMixed, len(codeMixed))
	}
	if takeMonolingual < wantMonolingual {
		monitoring.Logf("sampler: monolingual stratum short by %d (wanted %d, have %d); backfilling from code-mixed",
			wantMonolingual-takeMonolingual, wantMonolingual, len(monolingual))
	}

	// Backfill the deficit from whichever stratum has spares. The
	// availability check above guarantees the combined take reaches
	// cfg.Size.
	backfilled := 0
	if deficit := cfg.Size - takeCodeMixed - takeMonolingual; deficit > 0 {
		backfilled = deficit
		fromMonolingual := min(deficit, len(monolingual)-takeMonolingual)
		takeMonolingual += fromMonolingual
		takeCodeMixed += deficit - fromMonolingual
	}

	selected := make([]db.Item, 0, cfg.Size)
	selected = append(selected, codeMixed[:takeCodeMixed]...)
	selected = append(selected, monolingual[:takeMonolingual]...)

	sort.Slice(selected, func(i, j int) bool { return selected[i].ItemID < selected[j].ItemID })

	result := Result{
		Items:      selected,
		Backfilled: backfilled,
	}
	for _, item := range selected {
		if item.CodeMixed {
			result.CodeMixedCount++
		}
	}

	return result, nil
}

func shuffle(items []db.Item, rng *rand.Rand) {
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
