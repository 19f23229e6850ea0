package labelstudio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// GoldQuestion is one entry in a gold question file. Templates are
// written with a nil expected label; the expert fills it in before the
// file is imported.
type GoldQuestion struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	ExpectedLabel    *int     `json:"expected_label"`
	ExpectedSubtypes []string `json:"expected_subtypes"`
	Notes            string   `json:"notes"`
}

// BuildGoldTemplate converts items to unfilled gold questions.
func BuildGoldTemplate(items []db.Item) []GoldQuestion {
	questions := make([]GoldQuestion, 0, len(items))
	for _, item := range items {
		questions = append(questions, GoldQuestion{
			ID:               item.ItemID,
			Text:             item.Text,
			ExpectedSubtypes: []string{},
		})
	}
	return questions
}

// WriteGoldTemplate writes a gold question template for expert review.
func WriteGoldTemplate(w io.Writer, items []db.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(BuildGoldTemplate(items)); err != nil {
		return fmt.Errorf("failed to encode gold template: %w", err)
	}
	return nil
}

// ParseGoldQuestions reads a filled gold question file. Questions still
// missing an expected label are skipped with a warning; a label outside
// {0,1} or subtypes on a non-toxic label are errors.
func ParseGoldQuestions(r io.Reader) ([]db.GoldItem, error) {
	var questions []GoldQuestion
	if err := json.NewDecoder(r).Decode(&questions); err != nil {
		return nil, fmt.Errorf("failed to decode gold questions: %w", err)
	}

	var golds []db.GoldItem
	unfilled := 0
	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("gold question with empty id")
		}
		if q.ExpectedLabel == nil {
			unfilled++
			continue
		}
		label := *q.ExpectedLabel
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("gold question %s: invalid expected label %d", q.ID, label)
		}
		subtypes := NormalizeSubtypes(q.ExpectedSubtypes)
		if label == 0 && len(subtypes) > 0 {
			return nil, fmt.Errorf("gold question %s: subtypes on a non-toxic label", q.ID)
		}
		golds = append(golds, db.GoldItem{
			ItemID:        q.ID,
			Label:         label,
			ToxicSubtypes: subtypes,
			Rationale:     q.Notes,
		})
	}
	if unfilled > 0 {
		monitoring.Logf("⚠️  %d gold questions still unfilled", unfilled)
	}

	return golds, nil
}
