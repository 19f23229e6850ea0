package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/labelstudio"
	"github.com/dhvani-data/annotation.report/internal/sampler"
)

// corpusRecord is one line of a corpus JSONL file. The field names
// follow the corpus preparation output, which differ from the item
// column names.
type corpusRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Source    string `json:"source"`
	Language  string `json:"language"`
	Split     string `json:"split"`
	CodeMixed bool   `json:"code_mixed"`
}

// readCorpus loads corpus records from a JSONL file. Blank lines are
// skipped; a malformed line or a record without an id fails the whole
// read.
func readCorpus(path string) ([]db.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var items []db.Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec corpusRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse corpus line %d: %w", lineNo, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("corpus line %d has no id", lineNo)
		}
		items = append(items, db.Item{
			ItemID:    rec.ID,
			Text:      rec.Text,
			Source:    rec.Source,
			Language:  rec.Language,
			Split:     rec.Split,
			CodeMixed: rec.CodeMixed,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return items, nil
}

func runSample() {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	corpus := fs.String("corpus", "", "Path to the corpus JSONL file (required)")
	name := fs.String("name", "", "Batch name (default: pilot-YYYYMMDD)")
	size := fs.Int("n", 0, "Pilot sample size (default: configured pilot_sample_size)")
	frac := fs.Float64("code-mixed-frac", -1, "Target code-mixed fraction (default: configured value)")
	seed := fs.Int64("seed", 0, "Pilot shuffle seed (default: configured value)")
	goldSize := fs.Int("gold-n", 0, "Gold candidate count (default: configured gold_sample_size)")
	tasksOut := fs.String("tasks-out", "pilot_tasks.json", "Label Studio import file to write")
	goldOut := fs.String("gold-out", "gold_template.json", "Gold labeling template to write")
	lsURL := fs.String("ls-url", "", "Label Studio base URL to push tasks to (optional)")
	lsToken := fs.String("ls-token", "", "Label Studio API token")
	lsProject := fs.Int("ls-project", 0, "Label Studio project ID")
	fs.Parse(os.Args[1:])

	if *corpus == "" {
		fmt.Fprintln(os.Stderr, "error: -corpus is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	if *size <= 0 {
		*size = cfg.GetPilotSampleSize()
	}
	if *frac < 0 {
		*frac = cfg.GetCodeMixedFraction()
	}
	if *seed == 0 {
		*seed = cfg.GetPilotSeed()
	}
	if *goldSize <= 0 {
		*goldSize = cfg.GetGoldSampleSize()
	}
	batchName := *name
	if batchName == "" {
		batchName = "pilot-" + time.Now().Format("20060102")
	}

	database := openDB(*dbFile)
	defer database.Close()

	items, err := readCorpus(*corpus)
	if err != nil {
		log.Fatalf("Failed to read corpus: %v", err)
	}
	inserted, err := database.InsertItems(items)
	if err != nil {
		log.Fatalf("Failed to insert corpus items: %v", err)
	}
	fmt.Printf("Corpus: %d records, %d new\n", len(items), inserted)

	pool, err := database.ListItemsByPool(db.PoolUnsampled, 0)
	if err != nil {
		log.Fatalf("Failed to list unsampled items: %v", err)
	}

	pilot, err := sampler.Sample(pool, sampler.Config{
		Size:              *size,
		CodeMixedFraction: *frac,
		Seed:              *seed,
	})
	if err != nil {
		log.Fatalf("Pilot sampling failed: %v", err)
	}
	pilotIDs := make([]string, 0, len(pilot.Items))
	exclude := make(map[string]bool, len(pilot.Items))
	for _, item := range pilot.Items {
		pilotIDs = append(pilotIDs, item.ItemID)
		exclude[item.ItemID] = true
	}

	// Gold candidates are drawn from the same pool but never overlap
	// the pilot batch.
	gold, err := sampler.Sample(pool, sampler.Config{
		Size:              *goldSize,
		CodeMixedFraction: *frac,
		Seed:              cfg.GetGoldSeed(),
		Exclude:           exclude,
	})
	if err != nil {
		log.Fatalf("Gold sampling failed: %v", err)
	}
	goldIDs := make([]string, 0, len(gold.Items))
	for _, item := range gold.Items {
		goldIDs = append(goldIDs, item.ItemID)
	}

	if err := database.MarkItemsPool(pilotIDs, db.PoolPilot); err != nil {
		log.Fatalf("Failed to mark pilot items: %v", err)
	}
	if err := database.MarkItemsPool(goldIDs, db.PoolGold); err != nil {
		log.Fatalf("Failed to mark gold items: %v", err)
	}

	batch := &db.Batch{Name: batchName, Kind: db.PoolPilot, Seed: *seed}
	if err := database.CreateBatch(batch); err != nil {
		log.Fatalf("Failed to create batch: %v", err)
	}
	tasks, err := database.CreateTasksForBatch(batch.BatchID, pilotIDs)
	if err != nil {
		log.Fatalf("Failed to create tasks: %v", err)
	}

	writeTasksFile(*tasksOut, pilot.Items)
	writeGoldTemplateFile(*goldOut, gold.Items)

	fmt.Printf("Batch %s: %d tasks (%d code-mixed, %d backfilled, seed %d)\n",
		batch.Name, len(tasks), pilot.CodeMixedCount, pilot.Backfilled, *seed)
	fmt.Printf("Gold candidates: %d (seed %d)\n", len(gold.Items), cfg.GetGoldSeed())
	fmt.Printf("Label Studio tasks written to %s\n", *tasksOut)
	fmt.Printf("Gold template written to %s\n", *goldOut)

	if *lsURL != "" {
		client := labelstudio.NewClient(*lsURL, *lsToken)
		if err := client.PushTasks(context.Background(), *lsProject, pilot.Items); err != nil {
			log.Fatalf("Failed to push tasks to Label Studio: %v", err)
		}
		fmt.Printf("Pushed %d tasks to Label Studio project %d\n", len(pilot.Items), *lsProject)
	}
}

func writeTasksFile(path string, items []db.Item) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	if err := labelstudio.WriteImportTasks(f, items); err != nil {
		f.Close()
		log.Fatalf("Failed to write Label Studio tasks: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", path, err)
	}
}

func writeGoldTemplateFile(path string, items []db.Item) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	if err := labelstudio.WriteGoldTemplate(f, items); err != nil {
		f.Close()
		log.Fatalf("Failed to write gold template: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", path, err)
	}
}
