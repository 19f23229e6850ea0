package db

import (
	"database/sql"
	"fmt"
	"log"
)

// UpsertAdjudication records an expert ruling for a task. A task holds
// at most one adjudication; a later ruling replaces the earlier one and
// the supersession is logged.
func (db *DB) UpsertAdjudication(adj *Adjudication) error {
	if adj.Label != 0 && adj.Label != 1 {
		return fmt.Errorf("invalid label %d", adj.Label)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("warning: failed to rollback transaction: %v\n", err)
		}
	}()

	// Check for an existing ruling so the replacement leaves a trace in
	// the logs.
	var prevLabel int
	var prevAdjudicator string
	err = tx.QueryRow(
		`SELECT label, adjudicator_id FROM adjudications WHERE task_id = ?`,
		adj.TaskID,
	).Scan(&prevLabel, &prevAdjudicator)
	switch {
	case err == sql.ErrNoRows:
		// first ruling for this task
	case err != nil:
		return fmt.Errorf("failed to check existing adjudication: %w", err)
	default:
		log.Printf("Adjudication for task %s superseded: %s label=%d replaces %s label=%d",
			adj.TaskID, adj.AdjudicatorID, adj.Label, prevAdjudicator, prevLabel)
	}

	result, err := tx.Exec(`
		INSERT INTO adjudications (task_id, adjudicator_id, label, toxic_subtypes, rationale)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			adjudicator_id = excluded.adjudicator_id,
			label = excluded.label,
			toxic_subtypes = excluded.toxic_subtypes,
			rationale = excluded.rationale,
			updated_unix = UNIXEPOCH('subsec')
	`,
		adj.TaskID,
		adj.AdjudicatorID,
		adj.Label,
		marshalSubtypes(adj.ToxicSubtypes),
		adj.Rationale,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert adjudication: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		adj.AdjudicationID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit adjudication: %w", err)
	}

	return nil
}

const adjudicationColumns = `adjudication_id, task_id, adjudicator_id, label, toxic_subtypes, rationale, created_unix, updated_unix`

// GetAdjudicationForTask retrieves the ruling for a task, if any.
func (db *DB) GetAdjudicationForTask(taskID string) (*Adjudication, error) {
	query := `
		SELECT ` + adjudicationColumns + `
		FROM adjudications
		WHERE task_id = ?
	`

	var adj Adjudication
	var subtypes string
	err := db.DB.QueryRow(query, taskID).Scan(
		&adj.AdjudicationID,
		&adj.TaskID,
		&adj.AdjudicatorID,
		&adj.Label,
		&subtypes,
		&adj.Rationale,
		&adj.CreatedUnix,
		&adj.UpdatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("adjudication not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get adjudication: %w", err)
	}
	adj.ToxicSubtypes = unmarshalSubtypes(subtypes)

	return &adj, nil
}

// ListAdjudications retrieves every adjudication in the database.
func (db *DB) ListAdjudications() ([]Adjudication, error) {
	query := `
		SELECT ` + adjudicationColumns + `
		FROM adjudications
		ORDER BY task_id
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjudications: %w", err)
	}
	defer rows.Close()

	var adjudications []Adjudication
	for rows.Next() {
		var adj Adjudication
		var subtypes string
		err := rows.Scan(
			&adj.AdjudicationID,
			&adj.TaskID,
			&adj.AdjudicatorID,
			&adj.Label,
			&subtypes,
			&adj.Rationale,
			&adj.CreatedUnix,
			&adj.UpdatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjudication: %w", err)
		}
		adj.ToxicSubtypes = unmarshalSubtypes(subtypes)
		adjudications = append(adjudications, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adjudications: %w", err)
	}

	return adjudications, nil
}

// ListAdjudicationsForBatch retrieves the adjudications on a batch's tasks.
func (db *DB) ListAdjudicationsForBatch(batchID string) ([]Adjudication, error) {
	query := `
		SELECT j.adjudication_id, j.task_id, j.adjudicator_id, j.label, j.toxic_subtypes, j.rationale, j.created_unix, j.updated_unix
		FROM adjudications j
		JOIN tasks t ON t.task_id = j.task_id
		WHERE t.batch_id = ?
		ORDER BY j.task_id
	`

	rows, err := db.DB.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch adjudications: %w", err)
	}
	defer rows.Close()

	var adjudications []Adjudication
	for rows.Next() {
		var adj Adjudication
		var subtypes string
		err := rows.Scan(
			&adj.AdjudicationID,
			&adj.TaskID,
			&adj.AdjudicatorID,
			&adj.Label,
			&subtypes,
			&adj.Rationale,
			&adj.CreatedUnix,
			&adj.UpdatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjudication: %w", err)
		}
		adj.ToxicSubtypes = unmarshalSubtypes(subtypes)
		adjudications = append(adjudications, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adjudications: %w", err)
	}

	return adjudications, nil
}
