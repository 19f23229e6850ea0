// Package db provides database operations for annotation.report.
package db

import "encoding/json"

// Item pool states. Items start unsampled and move into a pool when a
// sampler claims them.
const (
	PoolUnsampled  = "unsampled"
	PoolPilot      = "pilot"
	PoolGold       = "gold"
	PoolProduction = "production"
)

// ValidPools enumerates the item pool states.
var ValidPools = map[string]bool{
	PoolUnsampled:  true,
	PoolPilot:      true,
	PoolGold:       true,
	PoolProduction: true,
}

// ValidConfidenceLevels enumerates annotator confidence values.
var ValidConfidenceLevels = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// ValidBatchStatuses enumerates the batch lifecycle states.
var ValidBatchStatuses = map[string]bool{
	"open":       true,
	"annotating": true,
	"aggregated": true,
	"exported":   true,
}

// Item is a single source text awaiting or holding annotations.
type Item struct {
	ItemID      string  `json:"item_id"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Language    string  `json:"language"`
	Split       string  `json:"split"`
	CodeMixed   bool    `json:"code_mixed"`
	Pool        string  `json:"pool"`
	CreatedUnix float64 `json:"created_unix"`
}

// Batch groups the tasks produced by one sampling run.
type Batch struct {
	BatchID     string  `json:"batch_id"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // pilot, gold or production
	Seed        int64   `json:"seed"`
	Status      string  `json:"status"`
	CreatedUnix float64 `json:"created_unix"`
}

// Task is one item assigned for annotation within a batch.
type Task struct {
	TaskID      string  `json:"task_id"`
	ItemID      string  `json:"item_id"`
	BatchID     string  `json:"batch_id"`
	CreatedUnix float64 `json:"created_unix"`
}

// Annotation is a single annotator's judgement on a task.
type Annotation struct {
	AnnotationID  int64    `json:"annotation_id"`
	TaskID        string   `json:"task_id"`
	AnnotatorID   string   `json:"annotator_id"`
	Label         int      `json:"label"` // 0 non-toxic, 1 toxic
	ToxicSubtypes []string `json:"toxic_subtypes"`
	Confidence    string   `json:"confidence"`
	Notes         string   `json:"notes"`
	LeadTimeSecs  *float64 `json:"lead_time_secs,omitempty"`
	CreatedUnix   float64  `json:"created_unix"`
}

// Adjudication is an expert ruling on a disagreed task. At most one per
// task; re-submissions replace the previous ruling.
type Adjudication struct {
	AdjudicationID int64    `json:"adjudication_id"`
	TaskID         string   `json:"task_id"`
	AdjudicatorID  string   `json:"adjudicator_id"`
	Label          int      `json:"label"`
	ToxicSubtypes  []string `json:"toxic_subtypes"`
	Rationale      string   `json:"rationale"`
	CreatedUnix    float64  `json:"created_unix"`
	UpdatedUnix    float64  `json:"updated_unix"`
}

// GoldItem is an expert-labelled item used to score annotators.
type GoldItem struct {
	ItemID        string   `json:"item_id"`
	Label         int      `json:"label"`
	ToxicSubtypes []string `json:"toxic_subtypes"`
	Rationale     string   `json:"rationale"`
	CreatedUnix   float64  `json:"created_unix"`
}

// AggregatedLabel is the consensus label for a task after aggregation.
type AggregatedLabel struct {
	TaskID        string   `json:"task_id"`
	Label         int      `json:"label"`
	Method        string   `json:"method"`
	AgreementRate float64  `json:"agreement_rate"`
	NAnnotators   int      `json:"n_annotators"`
	Confidence    string   `json:"confidence"`
	ToxicSubtypes []string `json:"toxic_subtypes"`
	TieBroken     bool     `json:"tie_broken"`
	Adjudicated   bool     `json:"adjudicated"`
	ComputedUnix  float64  `json:"computed_unix"`
}

// marshalSubtypes encodes a subtype list as the JSON text stored in
// SQLite. A nil list encodes as the empty array.
func marshalSubtypes(subtypes []string) string {
	if len(subtypes) == 0 {
		return "[]"
	}
	data, err := json.Marshal(subtypes)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalSubtypes decodes the stored JSON text back to a subtype list.
// Malformed values decode as empty rather than failing the whole scan.
func unmarshalSubtypes(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var subtypes []string
	if err := json.Unmarshal([]byte(s), &subtypes); err != nil {
		return nil
	}
	return subtypes
}
