package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/dhvani-data/annotation.report/internal/iaa"
)

func runIAA() {
	fs := flag.NewFlagSet("iaa", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	batchName := fs.String("batch", "", "Batch to analyse (required)")
	reportPath := fs.String("report", "iaa_report.json", "Agreement report to write")
	disagreementsPath := fs.String("disagreements", "disagreements.csv", "Disagreement CSV to write")
	fs.Parse(os.Args[1:])

	if *batchName == "" {
		fmt.Fprintln(os.Stderr, "error: -batch is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	database := openDB(*dbFile)
	defer database.Close()

	batch, err := database.GetBatchByName(*batchName)
	if err != nil {
		log.Fatalf("Failed to find batch %q: %v", *batchName, err)
	}
	annotations, err := database.ListAnnotationsForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list annotations: %v", err)
	}

	report, err := iaa.Compute(annotations, iaa.Config{
		KappaThreshold: cfg.GetKappaThreshold(),
		Subtypes:       cfg.GetToxicSubtypes(),
	})
	if err != nil {
		var undef *iaa.UndefinedAgreementError
		if errors.As(err, &undef) {
			log.Fatalf("Agreement undefined for batch %s: %v", batch.Name, err)
		}
		log.Fatalf("Failed to compute agreement: %v", err)
	}

	fmt.Printf("Batch %s: %d tasks, %d annotators\n", batch.Name, report.NTasks, report.NAnnotators)
	for _, pair := range report.PairKappas {
		if pair.Kappa == nil {
			fmt.Printf("  %s vs %s: undefined over %d shared tasks\n", pair.AnnotatorA, pair.AnnotatorB, pair.NTasks)
			continue
		}
		fmt.Printf("  %s vs %s: κ=%.3f over %d shared tasks (%s)\n",
			pair.AnnotatorA, pair.AnnotatorB, *pair.Kappa, pair.NTasks, pair.Interpretation)
	}
	fmt.Printf("Raw agreement: %.1f%%, disagreements: %d\n", report.RawAgreement*100, len(report.Disagreements))

	writeIAAReport(*reportPath, batch.Name, report)
	writeDisagreementsCSV(*disagreementsPath, report.Disagreements)

	if report.Pass {
		fmt.Printf("✓ mean κ %.3f ≥ %.2f: ready to scale annotation\n", report.MeanKappa, report.Threshold)
	} else {
		fmt.Printf("⚠️  mean κ %.3f < %.2f: refine guidelines and rerun the pilot\n", report.MeanKappa, report.Threshold)
	}
}

func writeIAAReport(path, batchName string, report *iaa.Report) {
	out := struct {
		Batch string `json:"batch"`
		*iaa.Report
	}{Batch: batchName, Report: report}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal agreement report: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("Agreement report written to %s\n", path)
}

// writeDisagreementsCSV writes one row per vote on each disputed task,
// ordered by task then annotator.
func writeDisagreementsCSV(path string, disagreements []iaa.Disagreement) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"task_id", "annotator_id", "label"}); err != nil {
		f.Close()
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	for _, d := range disagreements {
		annotators := make([]string, 0, len(d.Labels))
		for id := range d.Labels {
			annotators = append(annotators, id)
		}
		sort.Strings(annotators)
		for _, id := range annotators {
			if err := w.Write([]string{d.TaskID, id, strconv.Itoa(d.Labels[id])}); err != nil {
				f.Close()
				log.Fatalf("Failed to write %s: %v", path, err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", path, err)
	}
	fmt.Printf("Disagreements written to %s\n", path)
}
