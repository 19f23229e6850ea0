// Package adjudicate produces the human adjudication worklist for
// disputed tasks and converts completed worklists back into
// adjudication records.
package adjudicate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/iaa"
)

// worklistHeader lists the CSV columns in order. The first three are
// filled on export; the last four are completed by the adjudicator.
var worklistHeader = []string{
	"task_id", "text", "votes", "final_label", "final_subtypes", "adjudicator_id", "rationale",
}

// Row is one disputed task presented for human review.
type Row struct {
	TaskID      string
	Text        string
	Annotations []db.Annotation
}

// BuildRows joins the disagreement set with the raw annotations and
// item text for each disputed task.
func BuildRows(disagreements []iaa.Disagreement, annotations []db.Annotation, textByTask map[string]string) []Row {
	byTask := make(map[string][]db.Annotation)
	for _, a := range annotations {
		byTask[a.TaskID] = append(byTask[a.TaskID], a)
	}

	rows := make([]Row, 0, len(disagreements))
	for _, d := range disagreements {
		rows = append(rows, Row{
			TaskID:      d.TaskID,
			Text:        textByTask[d.TaskID],
			Annotations: byTask[d.TaskID],
		})
	}
	return rows
}

// WriteWorklist writes one CSV row per disputed task, every raw vote
// shown side by side, with the adjudication columns left blank.
func WriteWorklist(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(worklistHeader); err != nil {
		return fmt.Errorf("failed to write worklist header: %w", err)
	}

	sorted := append([]Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskID < sorted[j].TaskID })

	for _, row := range sorted {
		record := []string{row.TaskID, row.Text, formatVotes(row.Annotations), "", "", "", ""}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write worklist row for task %s: %w", row.TaskID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatVotes renders raw votes as "ann-a=1[hate,insult]; ann-b=0",
// ordered by annotator ID.
func formatVotes(annotations []db.Annotation) string {
	sorted := append([]db.Annotation(nil), annotations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AnnotatorID < sorted[j].AnnotatorID })

	parts := make([]string, 0, len(sorted))
	for _, a := range sorted {
		part := fmt.Sprintf("%s=%d", a.AnnotatorID, a.Label)
		if len(a.ToxicSubtypes) > 0 {
			part += "[" + strings.Join(a.ToxicSubtypes, ",") + "]"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

// ParseWorklist reads a completed worklist and converts every resolved
// row into an adjudication record. Rows whose final_label is blank are
// unresolved and skipped. A resolved row must carry a binary label and
// an adjudicator ID, and may only list subtypes on a toxic label.
func ParseWorklist(r io.Reader) ([]db.Adjudication, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read worklist: %w", err)
	}

	var adjudications []db.Adjudication
	for i, record := range records {
		if i == 0 && len(record) > 0 && record[0] == "task_id" {
			continue
		}
		if len(record) < len(worklistHeader) {
			return nil, fmt.Errorf("worklist row %d has %d columns, want %d", i+1, len(record), len(worklistHeader))
		}

		taskID := strings.TrimSpace(record[0])
		if taskID == "" {
			return nil, fmt.Errorf("worklist row %d has no task_id", i+1)
		}

		finalLabel := strings.TrimSpace(record[3])
		if finalLabel == "" {
			continue
		}
		label, err := strconv.Atoi(finalLabel)
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("worklist row %d: final_label must be 0 or 1, got %q", i+1, finalLabel)
		}

		adjudicatorID := strings.TrimSpace(record[5])
		if adjudicatorID == "" {
			return nil, fmt.Errorf("worklist row %d: resolved task %s has no adjudicator_id", i+1, taskID)
		}

		subtypes := splitSubtypes(record[4])
		if label == 0 && len(subtypes) > 0 {
			return nil, fmt.Errorf("worklist row %d: task %s lists subtypes but final_label is 0", i+1, taskID)
		}

		adjudications = append(adjudications, db.Adjudication{
			TaskID:        taskID,
			AdjudicatorID: adjudicatorID,
			Label:         label,
			ToxicSubtypes: subtypes,
			Rationale:     strings.TrimSpace(record[6]),
		})
	}
	return adjudications, nil
}

func splitSubtypes(cell string) []string {
	var subtypes []string
	for _, s := range strings.Split(cell, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			subtypes = append(subtypes, s)
		}
	}
	sort.Strings(subtypes)
	return subtypes
}
