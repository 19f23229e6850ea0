package labelstudio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// exportTask mirrors one task in a Label Studio JSON export. Only the
// fields the engine reads are declared.
type exportTask struct {
	ID          int64              `json:"id"`
	Data        exportTaskData     `json:"data"`
	Annotations []exportAnnotation `json:"annotations"`
}

type exportTaskData struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type exportAnnotation struct {
	CreatedBy exportUser     `json:"created_by"`
	LeadTime  *float64       `json:"lead_time"`
	Result    []exportResult `json:"result"`
}

type exportUser struct {
	Username string `json:"username"`
}

type exportResult struct {
	FromName string      `json:"from_name"`
	Value    exportValue `json:"value"`
}

type exportValue struct {
	Choices []string `json:"choices"`
	Text    []string `json:"text"`
}

// ParseExport reads a Label Studio JSON export and returns the
// annotations it contains. taskIDByItem maps item IDs to the engine
// task IDs of the batch being imported; exported tasks for items
// outside the map are skipped with a warning, as are annotations that
// carry no binary toxicity choice.
func ParseExport(r io.Reader, taskIDByItem map[string]string) ([]db.Annotation, error) {
	var tasks []exportTask
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	var annotations []db.Annotation
	unknownItems := 0
	for _, task := range tasks {
		itemID := task.Data.ID
		if itemID == "" && task.ID != 0 {
			itemID = strconv.FormatInt(task.ID, 10)
		}
		if itemID == "" {
			monitoring.Logf("⚠️  skipping export task with no item ID")
			continue
		}

		taskID, ok := taskIDByItem[itemID]
		if !ok {
			unknownItems++
			continue
		}

		for _, ann := range task.Annotations {
			annotator := ann.CreatedBy.Username
			if annotator == "" {
				annotator = "unknown"
			}

			fields, ok := parseResult(ann.Result)
			if !ok {
				monitoring.Logf("⚠️  skipping annotation by %s on item %s: no binary label", annotator, itemID)
				continue
			}

			annotations = append(annotations, db.Annotation{
				TaskID:        taskID,
				AnnotatorID:   annotator,
				Label:         fields.label,
				ToxicSubtypes: fields.subtypes,
				Confidence:    fields.confidence,
				Notes:         fields.notes,
				LeadTimeSecs:  ann.LeadTime,
			})
		}
	}
	if unknownItems > 0 {
		monitoring.Logf("⚠️  export contained %d tasks for items outside the batch", unknownItems)
	}

	return annotations, nil
}

type resultFields struct {
	label      int
	subtypes   []string
	confidence string
	notes      string
}

// parseResult extracts the annotation fields from one result array. The
// binary toxicity choice may appear under any control name; subtype,
// confidence and notes controls are recognised by name.
func parseResult(results []exportResult) (resultFields, bool) {
	var fields resultFields
	hasLabel := false

	for _, res := range results {
		name := strings.ToLower(res.FromName)
		switch {
		case strings.Contains(name, "toxic_types"):
			fields.subtypes = NormalizeSubtypes(res.Value.Choices)
		case strings.Contains(name, "confidence"):
			if len(res.Value.Choices) > 0 {
				conf := strings.ToLower(strings.TrimSpace(res.Value.Choices[0]))
				if db.ValidConfidenceLevels[conf] {
					fields.confidence = conf
				} else {
					monitoring.Logf("⚠️  ignoring unknown confidence %q", res.Value.Choices[0])
				}
			}
		case strings.Contains(name, "notes"):
			fields.notes = strings.Join(res.Value.Text, "\n")
		default:
			for _, choice := range res.Value.Choices {
				switch strings.ToLower(strings.TrimSpace(choice)) {
				case "toxic":
					fields.label = 1
					hasLabel = true
				case "non-toxic", "non_toxic":
					fields.label = 0
					hasLabel = true
				}
			}
		}
	}

	return fields, hasLabel
}

// NormalizeSubtypes lowercases choices and joins words with underscores
// so "Self Harm" and "self-harm" both map to "self_harm". The result is
// deduplicated and sorted.
func NormalizeSubtypes(choices []string) []string {
	seen := make(map[string]bool, len(choices))
	var subtypes []string
	for _, choice := range choices {
		s := strings.ToLower(strings.TrimSpace(choice))
		s = strings.ReplaceAll(s, " ", "_")
		s = strings.ReplaceAll(s, "-", "_")
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		subtypes = append(subtypes, s)
	}
	sort.Strings(subtypes)
	return subtypes
}
