package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/labelstudio"
	"github.com/dhvani-data/annotation.report/internal/scorer"
)

func runScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	batchName := fs.String("batch", "", "Batch to score (default: all annotations)")
	goldPath := fs.String("gold", "", "Gold questions JSON to import before scoring")
	jsonOut := fs.String("out", "annotator_dashboard.json", "Dashboard JSON to write")
	csvOut := fs.String("csv", "annotator_performance.csv", "Dashboard CSV to write")
	plots := fs.Bool("plots", false, "Render accuracy and subtype F1 plots")
	plotDir := fs.String("plot-dir", "plots", "Directory for rendered plots")
	fs.Parse(os.Args[1:])

	cfg := loadConfig(*configPath)
	database := openDB(*dbFile)
	defer database.Close()

	if *goldPath != "" {
		f, err := os.Open(*goldPath)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", *goldPath, err)
		}
		golds, err := labelstudio.ParseGoldQuestions(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse gold questions: %v", err)
		}
		imported, err := database.ImportGoldItems(golds)
		if err != nil {
			log.Fatalf("Failed to import gold items: %v", err)
		}
		fmt.Printf("Imported %d gold items from %s\n", imported, *goldPath)
	}

	gold, err := database.ListGoldItems()
	if err != nil {
		log.Fatalf("Failed to list gold items: %v", err)
	}
	if len(gold) == 0 {
		log.Fatal("No gold items loaded; import them first with -gold <gold_questions.json>")
	}

	var annotations []db.Annotation
	var tasks []db.Task
	if *batchName != "" {
		batch, err := database.GetBatchByName(*batchName)
		if err != nil {
			log.Fatalf("Failed to find batch %q: %v", *batchName, err)
		}
		annotations, err = database.ListAnnotationsForBatch(batch.BatchID)
		if err != nil {
			log.Fatalf("Failed to list annotations: %v", err)
		}
		tasks, err = database.ListTasksForBatch(batch.BatchID)
		if err != nil {
			log.Fatalf("Failed to list tasks: %v", err)
		}
	} else {
		annotations, err = database.ListAllAnnotations()
		if err != nil {
			log.Fatalf("Failed to list annotations: %v", err)
		}
		tasks, err = database.ListAllTasks()
		if err != nil {
			log.Fatalf("Failed to list tasks: %v", err)
		}
	}

	dashboard := scorer.Score(annotations, tasks, gold, scorer.Config{
		AccuracyFloor:  cfg.GetAccuracyFloor(),
		MinGoldOverlap: cfg.GetMinGoldOverlap(),
		Subtypes:       cfg.GetToxicSubtypes(),
	})
	if len(dashboard.Scores) == 0 {
		fmt.Println("No annotations to score.")
		return
	}

	printDashboard(dashboard)
	writeDashboardJSON(*jsonOut, dashboard)
	writeDashboardCSV(*csvOut, dashboard)

	if *plots {
		if err := os.MkdirAll(*plotDir, 0755); err != nil {
			log.Fatalf("Failed to create plot directory: %v", err)
		}
		accuracyPath := filepath.Join(*plotDir, "annotator_accuracy.png")
		if err := scorer.RenderAccuracyPlot(dashboard, accuracyPath); err != nil {
			log.Fatalf("Failed to render accuracy plot: %v", err)
		}
		subtypePath := filepath.Join(*plotDir, "subtype_f1.png")
		if err := scorer.RenderSubtypeF1Plot(dashboard, cfg.GetToxicSubtypes(), subtypePath); err != nil {
			log.Fatalf("Failed to render subtype F1 plot: %v", err)
		}
		fmt.Printf("Plots written to %s and %s\n", accuracyPath, subtypePath)
	}
}

func printDashboard(dashboard *scorer.Dashboard) {
	fmt.Printf("Annotators: %d, gold items: %d\n\n", dashboard.Annotators, dashboard.GoldItems)
	fmt.Printf("%-20s %-12s %-12s %-8s %-8s\n", "Annotator", "Accuracy", "F1", "Gold", "Total")
	fmt.Println(strings.Repeat("-", 60))
	for _, score := range dashboard.Scores {
		if score.Status == scorer.StatusInsufficientGold {
			fmt.Printf("%-20s %-12s %-12s %7d %7d\n", score.AnnotatorID, "n/a", "n/a", score.GoldOverlap, score.TotalAnnotations)
			continue
		}
		fmt.Printf("%-20s %10.1f%% %10.1f%% %7d %7d\n",
			score.AnnotatorID, score.Accuracy*100, score.F1*100, score.GoldOverlap, score.TotalAnnotations)
	}

	var review []scorer.AnnotatorScore
	for _, score := range dashboard.Scores {
		if score.NeedsReview {
			review = append(review, score)
		}
	}
	if len(review) > 0 {
		fmt.Printf("\nAnnotators below %.0f%% accuracy:\n", dashboard.AccuracyFloor*100)
		for _, score := range review {
			fmt.Printf("  %s: %.1f%% (review needed)\n", score.AnnotatorID, score.Accuracy*100)
		}
	}
}

func writeDashboardJSON(path string, dashboard *scorer.Dashboard) {
	data, err := json.MarshalIndent(dashboard, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal dashboard: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	fmt.Printf("Dashboard written to %s\n", path)
}

func writeDashboardCSV(path string, dashboard *scorer.Dashboard) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	w := csv.NewWriter(f)
	header := []string{"annotator_id", "accuracy", "precision", "recall", "f1", "gold_overlap", "total_annotations", "status", "rank"}
	if err := w.Write(header); err != nil {
		f.Close()
		log.Fatalf("Failed to write %s: %v", path, err)
	}
	for _, score := range dashboard.Scores {
		record := []string{
			score.AnnotatorID,
			strconv.FormatFloat(score.Accuracy, 'f', -1, 64),
			strconv.FormatFloat(score.Precision, 'f', -1, 64),
			strconv.FormatFloat(score.Recall, 'f', -1, 64),
			strconv.FormatFloat(score.F1, 'f', -1, 64),
			strconv.Itoa(score.GoldOverlap),
			strconv.Itoa(score.TotalAnnotations),
			score.Status,
			strconv.Itoa(score.Rank),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			log.Fatalf("Failed to write %s: %v", path, err)
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
	fmt.Printf("Performance CSV written to %s\n", path)
}
