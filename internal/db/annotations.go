package db

import (
	"database/sql"
	"fmt"
)

// CreateAnnotation inserts a single annotation. Each annotator may hold
// at most one annotation per task; a second insert for the same pair
// fails on the unique constraint.
func (db *DB) CreateAnnotation(a *Annotation) error {
	if a.Confidence == "" {
		a.Confidence = "medium"
	}
	if !ValidConfidenceLevels[a.Confidence] {
		return fmt.Errorf("invalid confidence %q", a.Confidence)
	}
	if a.Label != 0 && a.Label != 1 {
		return fmt.Errorf("invalid label %d", a.Label)
	}

	query := `
		INSERT INTO annotations (task_id, annotator_id, label, toxic_subtypes, confidence, notes, lead_time_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.DB.Exec(
		query,
		a.TaskID,
		a.AnnotatorID,
		a.Label,
		marshalSubtypes(a.ToxicSubtypes),
		a.Confidence,
		a.Notes,
		a.LeadTimeSecs,
	)
	if err != nil {
		return fmt.Errorf("failed to create annotation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	a.AnnotationID = id
	return nil
}

// ImportAnnotations bulk-upserts annotations inside one transaction.
// Re-submissions by the same annotator for the same task replace the
// earlier judgement. Returns the number of rows written.
func (db *DB) ImportAnnotations(annotations []Annotation) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("warning: failed to rollback transaction: %v\n", err)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO annotations (task_id, annotator_id, label, toxic_subtypes, confidence, notes, lead_time_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, annotator_id) DO UPDATE SET
			label = excluded.label,
			toxic_subtypes = excluded.toxic_subtypes,
			confidence = excluded.confidence,
			notes = excluded.notes,
			lead_time_secs = excluded.lead_time_secs,
			created_unix = UNIXEPOCH('subsec')
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare annotation upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, a := range annotations {
		confidence := a.Confidence
		if confidence == "" {
			confidence = "medium"
		}
		if !ValidConfidenceLevels[confidence] {
			return 0, fmt.Errorf("invalid confidence %q for task %s", confidence, a.TaskID)
		}
		if a.Label != 0 && a.Label != 1 {
			return 0, fmt.Errorf("invalid label %d for task %s", a.Label, a.TaskID)
		}
		_, err := stmt.Exec(a.TaskID, a.AnnotatorID, a.Label, marshalSubtypes(a.ToxicSubtypes), confidence, a.Notes, a.LeadTimeSecs)
		if err != nil {
			return 0, fmt.Errorf("failed to import annotation for task %s: %w", a.TaskID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit annotation import: %w", err)
	}

	return written, nil
}

const annotationColumns = `annotation_id, task_id, annotator_id, label, toxic_subtypes, confidence, notes, lead_time_secs, created_unix`

// ListAnnotationsForTask retrieves all annotations on one task.
func (db *DB) ListAnnotationsForTask(taskID string) ([]Annotation, error) {
	query := `
		SELECT ` + annotationColumns + `
		FROM annotations
		WHERE task_id = ?
		ORDER BY annotator_id
	`

	rows, err := db.DB.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// ListAnnotationsForBatch retrieves all annotations on a batch's tasks.
func (db *DB) ListAnnotationsForBatch(batchID string) ([]Annotation, error) {
	query := `
		SELECT a.annotation_id, a.task_id, a.annotator_id, a.label, a.toxic_subtypes, a.confidence, a.notes, a.lead_time_secs, a.created_unix
		FROM annotations a
		JOIN tasks t ON t.task_id = a.task_id
		WHERE t.batch_id = ?
		ORDER BY a.task_id, a.annotator_id
	`

	rows, err := db.DB.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch annotations: %w", err)
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// ListAllAnnotations retrieves every annotation in the database.
func (db *DB) ListAllAnnotations() ([]Annotation, error) {
	query := `
		SELECT ` + annotationColumns + `
		FROM annotations
		ORDER BY task_id, annotator_id
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotations: %w", err)
	}
	defer rows.Close()

	return scanAnnotations(rows)
}

// ListAnnotators returns the distinct annotator IDs present in the database.
func (db *DB) ListAnnotators() ([]string, error) {
	rows, err := db.DB.Query(`SELECT DISTINCT annotator_id FROM annotations ORDER BY annotator_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotators: %w", err)
	}
	defer rows.Close()

	var annotators []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan annotator: %w", err)
		}
		annotators = append(annotators, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotators: %w", err)
	}

	return annotators, nil
}

func scanAnnotations(rows *sql.Rows) ([]Annotation, error) {
	var annotations []Annotation
	for rows.Next() {
		var a Annotation
		var subtypes string
		err := rows.Scan(
			&a.AnnotationID,
			&a.TaskID,
			&a.AnnotatorID,
			&a.Label,
			&subtypes,
			&a.Confidence,
			&a.Notes,
			&a.LeadTimeSecs,
			&a.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		a.ToxicSubtypes = unmarshalSubtypes(subtypes)
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate annotations: %w", err)
	}

	return annotations, nil
}
