// Package export writes a validated batch of aggregated labels as
// paired JSONL and CSV artifacts plus a manifest summarizing the batch.
// The two serializations round-trip to the same logical records.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/fsutil"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
	"github.com/dhvani-data/annotation.report/internal/schema"
	"github.com/dhvani-data/annotation.report/internal/security"
	"github.com/dhvani-data/annotation.report/internal/timeutil"
)

// Manifest describes one exported batch. Everything except CreatedAt
// is a pure function of the input records, so re-exporting identical
// input reproduces identical statistics.
type Manifest struct {
	BatchName          string            `json:"batch_name"`
	SchemaVersion      string            `json:"schema_version"`
	CreatedAt          string            `json:"created_at"`
	TotalRecords       int               `json:"total_records"`
	LabelCounts        map[string]int    `json:"label_counts"`
	SourceCounts       map[string]int    `json:"source_counts"`
	LanguageCounts     map[string]int    `json:"language_counts"`
	CodeMixedCount     int               `json:"code_mixed_count"`
	MeanAgreement      float64           `json:"mean_agreement"`
	AggregationMethod  string            `json:"aggregation_method"`
	ValidationWarnings int               `json:"validation_warnings"`
	Files              map[string]string `json:"files"`
}

// Config controls one export run.
type Config struct {
	SchemaVersion       string
	Method              string
	Subtypes            []string
	LowAgreementWarning float64
}

// Result reports what an export wrote.
type Result struct {
	JSONLPath    string
	CSVPath      string
	ManifestPath string
	Manifest     Manifest
	Warnings     []schema.Violation
}

// Exporter writes batches through an injectable filesystem and clock.
type Exporter struct {
	FS    fsutil.FileSystem
	Clock timeutil.Clock
}

// NewExporter returns an Exporter backed by the real filesystem and
// clock.
func NewExporter() *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, Clock: timeutil.RealClock{}}
}

// WriteBatch validates records and writes <batch>.jsonl, <batch>.csv
// and <batch>.manifest.json under dir. Any error-severity violation
// blocks the whole batch and nothing is written; warnings are logged
// and counted in the manifest. Each file lands via write-to-temp then
// rename, with the manifest written last.
func (e *Exporter) WriteBatch(dir, batchName string, records []schema.Record, cfg Config) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records to export for batch %s", batchName)
	}

	report := schema.Validate(records, schema.Config{
		Subtypes:            cfg.Subtypes,
		LowAgreementWarning: cfg.LowAgreementWarning,
	})
	if !report.Valid() {
		return nil, &schema.ViolationError{Violations: report.Errors}
	}
	for _, w := range report.Warnings {
		monitoring.Logf("⚠️  batch %s record %s: %s %s", batchName, w.RecordID, w.Field, w.Message)
	}

	sorted := make([]schema.Record, len(records))
	copy(sorted, records)
	for i := range sorted {
		normalizeRecord(&sorted[i])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if err := e.FS.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	name := safeBatchName(batchName)
	jsonlPath := filepath.Join(dir, name+".jsonl")
	csvPath := filepath.Join(dir, name+".csv")
	manifestPath := filepath.Join(dir, name+".manifest.json")

	jsonlData, err := marshalJSONL(sorted)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(e.FS, jsonlPath, jsonlData, 0644); err != nil {
		return nil, err
	}

	csvData, err := marshalCSV(sorted)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(e.FS, csvPath, csvData, 0644); err != nil {
		return nil, err
	}

	manifest := buildManifest(batchName, sorted, cfg, e.Clock.Now())
	manifest.ValidationWarnings = len(report.Warnings)
	manifest.Files = map[string]string{
		"jsonl": filepath.Base(jsonlPath),
		"csv":   filepath.Base(csvPath),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	manifestData = append(manifestData, '\n')
	if err := fsutil.WriteFileAtomic(e.FS, manifestPath, manifestData, 0644); err != nil {
		return nil, err
	}

	monitoring.Logf("✓ exported batch %s: %d records to %s", batchName, len(sorted), dir)
	return &Result{
		JSONLPath:    jsonlPath,
		CSVPath:      csvPath,
		ManifestPath: manifestPath,
		Manifest:     manifest,
		Warnings:     report.Warnings,
	}, nil
}

func marshalJSONL(records []schema.Record) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func buildManifest(batchName string, records []schema.Record, cfg Config, now time.Time) Manifest {
	manifest := Manifest{
		BatchName:         batchName,
		SchemaVersion:     cfg.SchemaVersion,
		CreatedAt:         now.UTC().Format(time.RFC3339),
		TotalRecords:      len(records),
		LabelCounts:       make(map[string]int),
		SourceCounts:      make(map[string]int),
		LanguageCounts:    make(map[string]int),
		AggregationMethod: cfg.Method,
	}

	rates := make([]float64, 0, len(records))
	for _, rec := range records {
		manifest.LabelCounts[fmt.Sprintf("%d", rec.FinalLabel)]++
		manifest.SourceCounts[rec.Source]++
		manifest.LanguageCounts[rec.Language]++
		if rec.CodeMixed {
			manifest.CodeMixedCount++
		}
		rates = append(rates, rec.Metadata.AgreementRate)
	}
	manifest.MeanAgreement = stat.Mean(rates, nil)
	return manifest
}

// normalizeRecord puts subtypes in canonical form (sorted, deduplicated,
// nil when empty) so both serializations parse back to identical values
// and re-exports are byte-comparable.
func normalizeRecord(rec *schema.Record) {
	if len(rec.Metadata.FinalSubtypes) == 0 {
		rec.Metadata.FinalSubtypes = nil
		return
	}
	sort.Strings(rec.Metadata.FinalSubtypes)
	rec.Metadata.FinalSubtypes = slices.Compact(rec.Metadata.FinalSubtypes)
}

// safeBatchName keeps batch-derived filenames to a portable character
// set.
func safeBatchName(name string) string {
	return security.SanitizeFilename(name)
}

// BuildRecords joins aggregated labels with their tasks and items into
// export records. Notes maps task ID to a free-text note, typically the
// adjudication rationale.
func BuildRecords(labels []db.AggregatedLabel, tasks []db.Task, items []db.Item, notes map[string]string) ([]schema.Record, error) {
	itemByID := make(map[string]db.Item, len(items))
	for _, item := range items {
		itemByID[item.ItemID] = item
	}
	itemIDByTask := make(map[string]string, len(tasks))
	for _, task := range tasks {
		itemIDByTask[task.TaskID] = task.ItemID
	}

	records := make([]schema.Record, 0, len(labels))
	for _, label := range labels {
		itemID, ok := itemIDByTask[label.TaskID]
		if !ok {
			return nil, fmt.Errorf("no task found for aggregated label %s", label.TaskID)
		}
		item, ok := itemByID[itemID]
		if !ok {
			return nil, fmt.Errorf("no item found for task %s", label.TaskID)
		}
		records = append(records, schema.Record{
			ID:         item.ItemID,
			Text:       item.Text,
			Source:     item.Source,
			Language:   item.Language,
			Split:      item.Split,
			CodeMixed:  item.CodeMixed,
			FinalLabel: label.Label,
			Method:     label.Method,
			Metadata: schema.Metadata{
				FinalSubtypes: label.ToxicSubtypes,
				Confidence:    label.Confidence,
				AgreementRate: label.AgreementRate,
				NAnnotators:   label.NAnnotators,
				Notes:         notes[label.TaskID],
			},
		})
	}
	return records, nil
}
