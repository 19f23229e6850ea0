package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dhvani-data/annotation.report/internal/db"
)

func runAggregate() {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	dbFile := fs.String("db", "annotations.db", "Path to the SQLite database file")
	configPath := fs.String("config", "", "Path to an engine config JSON file")
	fs.Parse(os.Args[1:])

	cfg := loadConfig(*configPath)
	database := openDB(*dbFile)
	defer database.Close()

	cli := db.NewAggregateCLI(database, aggregateConfig(cfg), cfg.GetLowAgreementWarning(), os.Stdout)

	args := fs.Args()
	if len(args) < 1 {
		cli.PrintUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	switch args[0] {
	case "run":
		if len(args) < 2 {
			log.Fatal("Usage: annotation-report aggregate run <batch>")
		}
		if err := cli.Run(ctx, args[1]); err != nil {
			log.Fatalf("Aggregation failed: %v", err)
		}

	case "analyse":
		if _, err := cli.Analyse(ctx); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

	case "rebuild":
		if err := cli.Rebuild(ctx); err != nil {
			log.Fatalf("Rebuild failed: %v", err)
		}

	case "delete":
		if len(args) < 2 {
			log.Fatal("Usage: annotation-report aggregate delete <method>")
		}
		if _, err := cli.Delete(ctx, args[1]); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}

	case "help":
		cli.PrintUsage()

	default:
		fmt.Printf("Unknown aggregate action: %s\n\n", args[0])
		cli.PrintUsage()
		os.Exit(1)
	}
}
