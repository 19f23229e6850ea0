package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/export"
	"github.com/dhvani-data/annotation.report/internal/schema"
)

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	batchName := fs.String("batch", "", "Batch to export (required)")
	outDir := fs.String("out-dir", "exports", "Directory to write export files into")
	method := fs.String("method", "", "Aggregation method override (default: configured method)")
	fs.Parse(os.Args[1:])

	if *batchName == "" {
		fmt.Fprintln(os.Stderr, "error: -batch is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	aggCfg := aggregateConfig(cfg)
	if *method != "" {
		aggCfg.Method = *method
	}

	database := openDB(*dbFile)
	defer database.Close()

	batch, err := database.GetBatchByName(*batchName)
	if err != nil {
		log.Fatalf("Failed to find batch %q: %v", *batchName, err)
	}

	// Refresh consensus labels so the export reflects every annotation
	// and adjudication on record.
	worker := db.NewAggregationWorker(database, aggCfg)
	if _, err := worker.RunBatch(context.Background(), batch.BatchID); err != nil {
		log.Fatalf("Failed to aggregate batch: %v", err)
	}

	labels, err := database.ListAggregatedLabelsForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list aggregated labels: %v", err)
	}
	if len(labels) == 0 {
		log.Fatalf("Batch %s has no aggregated labels to export", batch.Name)
	}
	tasks, err := database.ListTasksForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list tasks: %v", err)
	}
	items, err := database.ListItemsForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list items: %v", err)
	}
	adjudications, err := database.ListAdjudicationsForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list adjudications: %v", err)
	}
	notes := make(map[string]string, len(adjudications))
	for _, adj := range adjudications {
		if adj.Rationale != "" {
			notes[adj.TaskID] = adj.Rationale
		}
	}

	records, err := export.BuildRecords(labels, tasks, items, notes)
	if err != nil {
		log.Fatalf("Failed to build export records: %v", err)
	}

	result, err := export.NewExporter().WriteBatch(*outDir, batch.Name, records, export.Config{
		SchemaVersion:       cfg.GetSchemaVersion(),
		Method:              aggCfg.Method,
		Subtypes:            cfg.GetToxicSubtypes(),
		LowAgreementWarning: cfg.GetLowAgreementWarning(),
	})
	if err != nil {
		var verr *schema.ViolationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Export blocked: %d schema violations\n", len(verr.Violations))
			for _, v := range verr.Violations {
				fmt.Fprintf(os.Stderr, "  record %s: %s %s\n", v.RecordID, v.Field, v.Message)
			}
			os.Exit(1)
		}
		log.Fatalf("Export failed: %v", err)
	}

	if err := database.UpdateBatchStatus(batch.BatchID, "exported"); err != nil {
		log.Fatalf("Failed to update batch status: %v", err)
	}

	fmt.Printf("Exported %d records from batch %s\n", result.Manifest.TotalRecords, batch.Name)
	fmt.Printf("  jsonl:    %s\n", result.JSONLPath)
	fmt.Printf("  csv:      %s\n", result.CSVPath)
	fmt.Printf("  manifest: %s\n", result.ManifestPath)
	if len(result.Warnings) > 0 {
		fmt.Printf("  warnings: %d (see manifest)\n", len(result.Warnings))
	}
}
