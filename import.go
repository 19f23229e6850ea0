package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dhvani-data/annotation.report/internal/labelstudio"
)

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	batchName := fs.String("batch", "", "Batch the annotations belong to (required)")
	exportPath := fs.String("export", "", "Path to a Label Studio export JSON file")
	lsURL := fs.String("ls-url", "", "Label Studio base URL to fetch the export from")
	lsToken := fs.String("ls-token", "", "Label Studio API token")
	lsProject := fs.Int("ls-project", 0, "Label Studio project ID")
	fs.Parse(os.Args[1:])

	if *batchName == "" {
		fmt.Fprintln(os.Stderr, "error: -batch is required")
		fs.Usage()
		os.Exit(1)
	}
	if *exportPath == "" && *lsURL == "" {
		fmt.Fprintln(os.Stderr, "error: one of -export or -ls-url is required")
		fs.Usage()
		os.Exit(1)
	}

	database := openDB(*dbFile)
	defer database.Close()

	batch, err := database.GetBatchByName(*batchName)
	if err != nil {
		log.Fatalf("Failed to find batch %q: %v", *batchName, err)
	}
	tasks, err := database.ListTasksForBatch(batch.BatchID)
	if err != nil {
		log.Fatalf("Failed to list tasks: %v", err)
	}
	taskIDByItem := make(map[string]string, len(tasks))
	for _, task := range tasks {
		taskIDByItem[task.ItemID] = task.TaskID
	}

	var data []byte
	if *exportPath != "" {
		data, err = os.ReadFile(*exportPath)
		if err != nil {
			log.Fatalf("Failed to read export file: %v", err)
		}
	} else {
		client := labelstudio.NewClient(*lsURL, *lsToken)
		data, err = client.FetchExport(context.Background(), *lsProject)
		if err != nil {
			log.Fatalf("Failed to fetch export from Label Studio: %v", err)
		}
	}

	annotations, err := labelstudio.ParseExport(bytes.NewReader(data), taskIDByItem)
	if err != nil {
		log.Fatalf("Failed to parse export: %v", err)
	}
	if len(annotations) == 0 {
		fmt.Println("Export contained no annotations for this batch.")
		return
	}

	imported, err := database.ImportAnnotations(annotations)
	if err != nil {
		log.Fatalf("Failed to import annotations: %v", err)
	}

	// A batch starts collecting annotations the first time an import
	// lands. Later states are owned by aggregation and export.
	if batch.Status == "open" {
		if err := database.UpdateBatchStatus(batch.BatchID, "annotating"); err != nil {
			log.Fatalf("Failed to update batch status: %v", err)
		}
	}

	fmt.Printf("Imported %d annotations into batch %s\n", imported, batch.Name)
}
