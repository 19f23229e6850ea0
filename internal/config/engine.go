package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical engine defaults file.
// This is the single source of truth for all default engine values.
const DefaultConfigPath = "config/engine.defaults.json"

// EngineConfig represents the root configuration for the annotation
// pipeline. The schema matches the /api/config endpoint so the same
// JSON can be used for both startup configuration and inspection.
type EngineConfig struct {
	// Sampler params
	PilotSampleSize   *int     `json:"pilot_sample_size,omitempty"`
	GoldSampleSize    *int     `json:"gold_sample_size,omitempty"`
	CodeMixedFraction *float64 `json:"code_mixed_fraction,omitempty"`
	PilotSeed         *int64   `json:"pilot_seed,omitempty"`
	GoldSeed          *int64   `json:"gold_seed,omitempty"`

	// Agreement params
	KappaThreshold      *float64 `json:"kappa_threshold,omitempty"`
	LowAgreementWarning *float64 `json:"low_agreement_warning,omitempty"`
	ToxicSubtypes       []string `json:"toxic_subtypes,omitempty"`

	// Aggregation params
	AggregationMethod *string  `json:"aggregation_method,omitempty"`
	TieBreakLabel     *int     `json:"tie_break_label,omitempty"`
	WeightLow         *float64 `json:"weight_low,omitempty"`
	WeightMedium      *float64 `json:"weight_medium,omitempty"`
	WeightHigh        *float64 `json:"weight_high,omitempty"`

	// Scorer params
	AccuracyFloor  *float64 `json:"accuracy_floor,omitempty"`
	MinGoldOverlap *int     `json:"min_gold_overlap,omitempty"`

	// Export params
	SchemaVersion *string `json:"schema_version,omitempty"`

	// Worker params
	WorkerInterval  *string `json:"worker_interval,omitempty"` // duration string like "1h"
	WorkerBatchSize *int    `json:"worker_batch_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyEngineConfig returns an EngineConfig with all fields set to nil.
// Use LoadEngineConfig to load actual values from the defaults file.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// LoadEngineConfig loads an EngineConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical engine defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *EngineConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/db/ subpackages
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadEngineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// ValidAggregationMethods lists the label aggregation policies that can
// be configured. Adjudicated labels always take precedence regardless of
// policy and are not themselves a configurable method.
var ValidAggregationMethods = map[string]bool{
	"majority_vote":       true,
	"confidence_weighted": true,
}

// Validate checks that the configuration values are valid.
func (c *EngineConfig) Validate() error {
	// Validate CodeMixedFraction if set
	if c.CodeMixedFraction != nil {
		if *c.CodeMixedFraction < 0 || *c.CodeMixedFraction > 1 {
			return fmt.Errorf("code_mixed_fraction must be between 0 and 1, got %f", *c.CodeMixedFraction)
		}
	}

	// Validate KappaThreshold if set. Cohen's kappa ranges over [-1, 1].
	if c.KappaThreshold != nil {
		if *c.KappaThreshold < -1 || *c.KappaThreshold > 1 {
			return fmt.Errorf("kappa_threshold must be between -1 and 1, got %f", *c.KappaThreshold)
		}
	}

	// Validate AccuracyFloor if set
	if c.AccuracyFloor != nil {
		if *c.AccuracyFloor < 0 || *c.AccuracyFloor > 1 {
			return fmt.Errorf("accuracy_floor must be between 0 and 1, got %f", *c.AccuracyFloor)
		}
	}

	// Validate AggregationMethod if set
	if c.AggregationMethod != nil && *c.AggregationMethod != "" {
		if !ValidAggregationMethods[*c.AggregationMethod] {
			return fmt.Errorf("unknown aggregation_method %q", *c.AggregationMethod)
		}
	}

	// Validate TieBreakLabel if set. Labels are binary.
	if c.TieBreakLabel != nil {
		if *c.TieBreakLabel != 0 && *c.TieBreakLabel != 1 {
			return fmt.Errorf("tie_break_label must be 0 or 1, got %d", *c.TieBreakLabel)
		}
	}

	// Validate confidence weights if set
	for name, w := range map[string]*float64{
		"weight_low":    c.WeightLow,
		"weight_medium": c.WeightMedium,
		"weight_high":   c.WeightHigh,
	} {
		if w != nil && *w <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *w)
		}
	}

	// Validate WorkerInterval can be parsed if set
	if c.WorkerInterval != nil && *c.WorkerInterval != "" {
		if _, err := time.ParseDuration(*c.WorkerInterval); err != nil {
			return fmt.Errorf("invalid worker_interval '%s': %w", *c.WorkerInterval, err)
		}
	}

	// Validate sample sizes if set
	if c.PilotSampleSize != nil {
		if *c.PilotSampleSize < 0 {
			return fmt.Errorf("pilot_sample_size must be non-negative, got %d", *c.PilotSampleSize)
		}
	}
	if c.GoldSampleSize != nil {
		if *c.GoldSampleSize < 0 {
			return fmt.Errorf("gold_sample_size must be non-negative, got %d", *c.GoldSampleSize)
		}
	}

	return nil
}

// GetPilotSampleSize returns the pilot_sample_size value or the default.
func (c *EngineConfig) GetPilotSampleSize() int {
	if c.PilotSampleSize == nil {
		return 100 // default
	}
	return *c.PilotSampleSize
}

// GetGoldSampleSize returns the gold_sample_size value or the default.
func (c *EngineConfig) GetGoldSampleSize() int {
	if c.GoldSampleSize == nil {
		return 50 // default
	}
	return *c.GoldSampleSize
}

// GetCodeMixedFraction returns the code_mixed_fraction value or the default.
func (c *EngineConfig) GetCodeMixedFraction() float64 {
	if c.CodeMixedFraction == nil {
		return 0.5 // default: balanced pilot
	}
	return *c.CodeMixedFraction
}

// GetPilotSeed returns the pilot_seed value or the default.
func (c *EngineConfig) GetPilotSeed() int64 {
	if c.PilotSeed == nil {
		return 42 // default
	}
	return *c.PilotSeed
}

// GetGoldSeed returns the gold_seed value or the default.
func (c *EngineConfig) GetGoldSeed() int64 {
	if c.GoldSeed == nil {
		return 999 // default
	}
	return *c.GoldSeed
}

// GetKappaThreshold returns the kappa_threshold value or the default.
func (c *EngineConfig) GetKappaThreshold() float64 {
	if c.KappaThreshold == nil {
		return 0.70 // default: full-dataset go/no-go gate
	}
	return *c.KappaThreshold
}

// GetLowAgreementWarning returns the low_agreement_warning value or the default.
func (c *EngineConfig) GetLowAgreementWarning() float64 {
	if c.LowAgreementWarning == nil {
		return 0.5 // default: flag tasks where annotators split evenly
	}
	return *c.LowAgreementWarning
}

// GetToxicSubtypes returns the toxic_subtypes list or the default.
func (c *EngineConfig) GetToxicSubtypes() []string {
	if len(c.ToxicSubtypes) == 0 {
		return []string{"hate", "threat", "insult", "harassment", "self_harm"}
	}
	return c.ToxicSubtypes
}

// GetAggregationMethod returns the aggregation_method value or the default.
func (c *EngineConfig) GetAggregationMethod() string {
	if c.AggregationMethod == nil || *c.AggregationMethod == "" {
		return "majority_vote" // default
	}
	return *c.AggregationMethod
}

// GetTieBreakLabel returns the tie_break_label value or the default.
func (c *EngineConfig) GetTieBreakLabel() int {
	if c.TieBreakLabel == nil {
		return 1 // default: ties resolve toxic so they surface for review
	}
	return *c.TieBreakLabel
}

// GetWeightLow returns the weight_low value or the default.
func (c *EngineConfig) GetWeightLow() float64 {
	if c.WeightLow == nil {
		return 1.0
	}
	return *c.WeightLow
}

// GetWeightMedium returns the weight_medium value or the default.
func (c *EngineConfig) GetWeightMedium() float64 {
	if c.WeightMedium == nil {
		return 2.0
	}
	return *c.WeightMedium
}

// GetWeightHigh returns the weight_high value or the default.
func (c *EngineConfig) GetWeightHigh() float64 {
	if c.WeightHigh == nil {
		return 3.0
	}
	return *c.WeightHigh
}

// GetAccuracyFloor returns the accuracy_floor value or the default.
func (c *EngineConfig) GetAccuracyFloor() float64 {
	if c.AccuracyFloor == nil {
		return 0.80 // default: retraining threshold
	}
	return *c.AccuracyFloor
}

// GetMinGoldOverlap returns the min_gold_overlap value or the default.
func (c *EngineConfig) GetMinGoldOverlap() int {
	if c.MinGoldOverlap == nil {
		return 10 // default: minimum gold items for a stable score
	}
	return *c.MinGoldOverlap
}

// GetSchemaVersion returns the schema_version value or the default.
func (c *EngineConfig) GetSchemaVersion() string {
	if c.SchemaVersion == nil || *c.SchemaVersion == "" {
		return "1.0" // default
	}
	return *c.SchemaVersion
}

// GetWorkerInterval parses and returns the WorkerInterval as a time.Duration.
func (c *EngineConfig) GetWorkerInterval() time.Duration {
	if c.WorkerInterval == nil || *c.WorkerInterval == "" {
		return 1 * time.Hour // default
	}
	d, err := time.ParseDuration(*c.WorkerInterval)
	if err != nil {
		return 1 * time.Hour // default on parse error
	}
	return d
}

// GetWorkerBatchSize returns the worker_batch_size value or the default.
func (c *EngineConfig) GetWorkerBatchSize() int {
	if c.WorkerBatchSize == nil {
		return 500 // default
	}
	return *c.WorkerBatchSize
}
