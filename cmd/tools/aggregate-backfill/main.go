package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
	"github.com/dhvani-data/annotation.report/internal/config"
	"github.com/dhvani-data/annotation.report/internal/db"
)

func main() {
	var dbPath string
	var configPath string
	var batchName string
	var method string

	flag.StringVar(&dbPath, "db", "annotations.db", "path to sqlite db")
	flag.StringVar(&configPath, "config", "", "path to engine config JSON")
	flag.StringVar(&batchName, "batch", "", "aggregate only this batch (default: all batches)")
	flag.StringVar(&method, "method", "", "aggregation method override")
	flag.Parse()

	cfg := config.EmptyEngineConfig()
	if configPath != "" {
		var err error
		cfg, err = config.LoadEngineConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	aggCfg := aggregate.Config{
		Method:        cfg.GetAggregationMethod(),
		TieBreakLabel: cfg.GetTieBreakLabel(),
		WeightLow:     cfg.GetWeightLow(),
		WeightMedium:  cfg.GetWeightMedium(),
		WeightHigh:    cfg.GetWeightHigh(),
	}
	if method != "" {
		aggCfg.Method = method
	}

	dbConn, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()

	w := db.NewAggregationWorker(dbConn, aggCfg)
	ctx := context.Background()

	var batches []db.Batch
	if batchName != "" {
		batch, err := dbConn.GetBatchByName(batchName)
		if err != nil {
			log.Fatalf("find batch: %v", err)
		}
		batches = []db.Batch{*batch}
	} else {
		batches, err = dbConn.ListBatches(-1)
		if err != nil {
			log.Fatalf("list batches: %v", err)
		}
	}

	for _, batch := range batches {
		fmt.Printf("aggregating batch %s (%s)\n", batch.Name, batch.Status)
		written, err := w.RunBatch(ctx, batch.BatchID)
		if err != nil {
			log.Fatalf("aggregate failed: %v", err)
		}
		fmt.Printf("  %d labels written\n", written)
	}

	fmt.Println("backfill complete")
}
