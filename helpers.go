package main

import (
	"log"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
	"github.com/dhvani-data/annotation.report/internal/config"
	"github.com/dhvani-data/annotation.report/internal/db"
)

// openDB opens the database at path, applying any pending schema
// migrations, or fatals.
func openDB(path string) *db.DB {
	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return database
}

// loadConfig reads the engine config at path. An empty path yields the
// built-in defaults.
func loadConfig(path string) *config.EngineConfig {
	if path == "" {
		return config.EmptyEngineConfig()
	}
	cfg, err := config.LoadEngineConfig(path)
	if err != nil {
		log.Fatalf("Failed to load engine config: %v", err)
	}
	return cfg
}

// aggregateConfig maps the engine config onto aggregation settings.
func aggregateConfig(cfg *config.EngineConfig) aggregate.Config {
	return aggregate.Config{
		Method:        cfg.GetAggregationMethod(),
		TieBreakLabel: cfg.GetTieBreakLabel(),
		WeightLow:     cfg.GetWeightLow(),
		WeightMedium:  cfg.GetWeightMedium(),
		WeightHigh:    cfg.GetWeightHigh(),
	}
}
