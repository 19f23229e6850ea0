// Package schema defines the exported record contract and validates
// candidate batches against it before any artifact is written.
package schema

import (
	"fmt"
)

// Severity levels for violations. Errors block export; warnings are
// logged and do not.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Metadata carries the aggregation detail attached to each exported
// record.
type Metadata struct {
	FinalSubtypes []string `json:"final_subtypes"`
	Confidence    string   `json:"confidence"`
	AgreementRate float64  `json:"agreement_rate"`
	NAnnotators   int      `json:"n_annotators"`
	Notes         string   `json:"notes,omitempty"`
}

// Record is one exported label: the item fields plus the final label
// and aggregation metadata.
type Record struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Source     string   `json:"source"`
	Language   string   `json:"language"`
	Split      string   `json:"split,omitempty"`
	CodeMixed  bool     `json:"code_mixed"`
	FinalLabel int      `json:"final_label"`
	Method     string   `json:"aggregation_method"`
	Metadata   Metadata `json:"metadata"`
}

// Violation is one failed check on one record.
type Violation struct {
	RecordIndex int    `json:"record_index"`
	RecordID    string `json:"record_id"`
	Field       string `json:"field"`
	Message     string `json:"message"`
	Severity    string `json:"severity"`
}

// Report collects every violation found in a batch. A batch with zero
// error-severity violations may be exported.
type Report struct {
	Checked  int         `json:"checked"`
	Errors   []Violation `json:"errors"`
	Warnings []Violation `json:"warnings"`
}

// Valid reports whether the batch passed every blocking check.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// ViolationError blocks an export. It carries the full violation list
// so every issue can be fixed in one pass.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("schema validation failed with %d violations", len(e.Violations))
}

// Config controls validation.
type Config struct {
	// Subtypes is the allowed subtype vocabulary. Empty disables the
	// vocabulary check.
	Subtypes []string

	// LowAgreementWarning flags records whose agreement rate falls
	// below it. Zero disables the warning.
	LowAgreementWarning float64
}

var validConfidence = map[string]bool{"low": true, "medium": true, "high": true}

// Validate checks a candidate batch against the record contract and
// returns every violation found, never stopping at the first.
func Validate(records []Record, cfg Config) *Report {
	report := &Report{Checked: len(records)}

	allowed := make(map[string]bool, len(cfg.Subtypes))
	for _, s := range cfg.Subtypes {
		allowed[s] = true
	}

	// Duplicate IDs are reported on every record involved, including
	// the first occurrence.
	firstIndex := make(map[string]int)
	flagged := make(map[string]bool)
	for i, rec := range records {
		if rec.ID == "" {
			continue
		}
		first, seen := firstIndex[rec.ID]
		if !seen {
			firstIndex[rec.ID] = i
			continue
		}
		if !flagged[rec.ID] {
			flagged[rec.ID] = true
			report.addError(first, rec.ID, "id", fmt.Sprintf("duplicate id %q", rec.ID))
		}
		report.addError(i, rec.ID, "id", fmt.Sprintf("duplicate id %q", rec.ID))
	}

	for i, rec := range records {
		if rec.ID == "" {
			report.addError(i, rec.ID, "id", "missing id")
		}
		if rec.Text == "" {
			report.addError(i, rec.ID, "text", "missing text")
		}
		if rec.Source == "" {
			report.addError(i, rec.ID, "source", "missing source")
		}
		if rec.FinalLabel != 0 && rec.FinalLabel != 1 {
			report.addError(i, rec.ID, "final_label", fmt.Sprintf("final_label must be 0 or 1, got %d", rec.FinalLabel))
		}
		if !validConfidence[rec.Metadata.Confidence] {
			report.addError(i, rec.ID, "metadata.confidence", fmt.Sprintf("invalid confidence %q", rec.Metadata.Confidence))
		}
		if rec.Metadata.AgreementRate < 0 || rec.Metadata.AgreementRate > 1 {
			report.addError(i, rec.ID, "metadata.agreement_rate", fmt.Sprintf("agreement_rate must be in [0, 1], got %f", rec.Metadata.AgreementRate))
		}
		if rec.Metadata.NAnnotators < 1 {
			report.addError(i, rec.ID, "metadata.n_annotators", fmt.Sprintf("n_annotators must be at least 1, got %d", rec.Metadata.NAnnotators))
		}
		if rec.FinalLabel == 0 && len(rec.Metadata.FinalSubtypes) > 0 {
			report.addError(i, rec.ID, "metadata.final_subtypes", "subtypes present on a non-toxic label")
		}
		if len(allowed) > 0 {
			for _, s := range rec.Metadata.FinalSubtypes {
				if !allowed[s] {
					report.addError(i, rec.ID, "metadata.final_subtypes", fmt.Sprintf("unknown subtype %q", s))
				}
			}
		}

		if rec.Language == "" {
			report.addWarning(i, rec.ID, "language", "missing language")
		}
		if cfg.LowAgreementWarning > 0 && rec.Metadata.AgreementRate >= 0 && rec.Metadata.AgreementRate < cfg.LowAgreementWarning {
			report.addWarning(i, rec.ID, "metadata.agreement_rate",
				fmt.Sprintf("agreement_rate %.2f below %.2f", rec.Metadata.AgreementRate, cfg.LowAgreementWarning))
		}
	}

	return report
}

func (r *Report) addError(index int, id, field, message string) {
	r.Errors = append(r.Errors, Violation{
		RecordIndex: index,
		RecordID:    id,
		Field:       field,
		Message:     message,
		Severity:    SeverityError,
	})
}

func (r *Report) addWarning(index int, id, field, message string) {
	r.Warnings = append(r.Warnings, Violation{
		RecordIndex: index,
		RecordID:    id,
		Field:       field,
		Message:     message,
		Severity:    SeverityWarning,
	})
}
