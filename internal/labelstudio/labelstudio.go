// Package labelstudio converts between the engine's data model and the
// Label Studio task, export and gold question file formats, and talks
// to a Label Studio server over its HTTP API.
package labelstudio

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dhvani-data/annotation.report/internal/db"
)

// TaskData is the payload shown to annotators for one task. CodeMixed
// is carried as a string because the labeling UI renders data fields as
// text.
type TaskData struct {
	Text      string            `json:"text"`
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Language  string            `json:"language"`
	CodeMixed string            `json:"code_mixed"`
	Metadata  map[string]string `json:"metadata"`
}

// ImportTask is one entry in a Label Studio import file. The numeric ID
// is 1-indexed over the import order; the stable item ID lives in Data.
type ImportTask struct {
	Data TaskData `json:"data"`
	ID   int      `json:"id"`
}

// BuildImportTasks converts items to import tasks, preserving order.
func BuildImportTasks(items []db.Item) []ImportTask {
	tasks := make([]ImportTask, 0, len(items))
	for i, item := range items {
		metadata := map[string]string{}
		if item.Split != "" {
			metadata["split"] = item.Split
		}
		tasks = append(tasks, ImportTask{
			Data: TaskData{
				Text:      item.Text,
				ID:        item.ItemID,
				Source:    item.Source,
				Language:  item.Language,
				CodeMixed: strconv.FormatBool(item.CodeMixed),
				Metadata:  metadata,
			},
			ID: i + 1,
		})
	}
	return tasks
}

// WriteImportTasks writes items as a Label Studio import file.
func WriteImportTasks(w io.Writer, items []db.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(BuildImportTasks(items)); err != nil {
		return fmt.Errorf("failed to encode import tasks: %w", err)
	}
	return nil
}
