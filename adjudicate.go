package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dhvani-data/annotation.report/internal/adjudicate"
	"github.com/dhvani-data/annotation.report/internal/config"
	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/iaa"
)

func runAdjudicate() {
	fs := flag.NewFlagSet("adjudicate", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	out := fs.String("out", "adjudication_worklist.csv", "Worklist CSV to write (template)")
	in := fs.String("in", "", "Completed worklist CSV to apply (apply)")
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) < 1 {
		printAdjudicateUsage()
		os.Exit(1)
	}

	database := openDB(*dbFile)
	defer database.Close()

	switch args[0] {
	case "template":
		if len(args) < 2 {
			log.Fatal("Usage: annotation-report adjudicate template <batch>")
		}
		adjudicateTemplate(database, loadConfig(*configPath), args[1], *out)

	case "apply":
		if *in == "" {
			log.Fatal("Usage: annotation-report adjudicate -in <worklist.csv> apply")
		}
		adjudicateApply(database, *in)

	case "help":
		printAdjudicateUsage()

	default:
		fmt.Printf("Unknown adjudicate action: %s\n\n", args[0])
		printAdjudicateUsage()
		os.Exit(1)
	}
}

func adjudicateTemplate(database *db.DB, cfg *config.EngineConfig, batchName, outPath string) {
	batch, err := database.GetBatchByName(batchName)
	if err != nil {
		log.Fatalf("Failed to find batch %q: %v", batchName, err)
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
	if len(report.Disagreements) == 0 {
		fmt.Printf("Batch %s has no disagreements to adjudicate.\n", batch.Name)
		return
	}

	tasks, err := database.ListTasksForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list tasks: %v", err)
	}
	items, err := database.ListItemsForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list items: %v", err)
	}
	textByItem := make(map[string]string, len(items))
	for _, item := range items {
		textByItem[item.ItemID] = item.Text
	}
	textByTask := make(map[string]string, len(tasks))
	for _, task := range tasks {
		textByTask[task.TaskID] = textByItem[task.ItemID]
	}

	rows := adjudicate.BuildRows(report.Disagreements, annotations, textByTask)

	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", outPath, err)
	}
	if err := adjudicate.WriteWorklist(f, rows); err != nil {
		f.Close()
		log.Fatalf("Failed to write worklist: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", outPath, err)
	}

	fmt.Printf("Worklist with %d disputed tasks written to %s\n", len(rows), outPath)
	fmt.Println("Fill in final_label, final_subtypes, adjudicator_id and rationale, then run:")
	fmt.Printf("  annotation-report adjudicate -in %s apply\n", outPath)
}

func adjudicateApply(database *db.DB, inPath string) {
	f, err := os.Open(inPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", inPath, err)
	}
	defer f.Close()

	adjudications, err := adjudicate.ParseWorklist(f)
	if err != nil {
		log.Fatalf("Failed to parse worklist: %v", err)
	}
	if len(adjudications) == 0 {
		fmt.Println("Worklist has no resolved rows.")
		return
	}

	for i := range adjudications {
		if err := database.UpsertAdjudication(&adjudications[i]); err != nil {
			log.Fatalf("Failed to store adjudication for task %s: %v", adjudications[i].TaskID, err)
		}
	}

	fmt.Printf("Applied %d adjudications\n", len(adjudications))
	fmt.Println("Re-run aggregation to fold them into the consensus labels:")
	fmt.Println("  annotation-report aggregate run <batch>")
}

func printAdjudicateUsage() {
	fmt.Println("Usage: annotation-report adjudicate [options] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  template <batch>   Write the disagreement worklist for a batch")
	fmt.Println("  apply              Apply a completed worklist (-in)")
	fmt.Println("  help               Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -db <path>      Path to database file (default: annotations.db)")
	fmt.Println("  -config <path>  Path to an engine config JSON file")
	fmt.Println("  -out <path>     Worklist to write (default: adjudication_worklist.csv)")
	fmt.Println("  -in <path>      Completed worklist to apply")
}
