package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateBatch creates a new batch record. A batch ID is generated when
// one is not supplied.
func (db *DB) CreateBatch(batch *Batch) error {
	if batch.BatchID == "" {
		batch.BatchID = uuid.New().String()
	}
	if batch.Status == "" {
		batch.Status = "open"
	}
	if !ValidBatchStatuses[batch.Status] {
		return fmt.Errorf("invalid batch status %q", batch.Status)
	}
	if !ValidPools[batch.Kind] || batch.Kind == PoolUnsampled {
		return fmt.Errorf("invalid batch kind %q", batch.Kind)
	}

	query := `
		INSERT INTO batches (batch_id, name, kind, seed, status)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(query, batch.BatchID, batch.Name, batch.Kind, batch.Seed, batch.Status)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// GetBatch retrieves a batch by ID.
func (db *DB) GetBatch(batchID string) (*Batch, error) {
	query := `
		SELECT batch_id, name, kind, seed, status, created_unix
		FROM batches
		WHERE batch_id = ?
	`

	var batch Batch
	err := db.DB.QueryRow(query, batchID).Scan(
		&batch.BatchID,
		&batch.Name,
		&batch.Kind,
		&batch.Seed,
		&batch.Status,
		&batch.CreatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// GetBatchByName retrieves the most recent batch with the given name.
func (db *DB) GetBatchByName(name string) (*Batch, error) {
	query := `
		SELECT batch_id, name, kind, seed, status, created_unix
		FROM batches
		WHERE name = ?
		ORDER BY created_unix DESC
		LIMIT 1
	`

	var batch Batch
	err := db.DB.QueryRow(query, name).Scan(
		&batch.BatchID,
		&batch.Name,
		&batch.Kind,
		&batch.Seed,
		&batch.Status,
		&batch.CreatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// ListBatches retrieves the most recent batches. A non-positive limit
// returns all of them.
func (db *DB) ListBatches(limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT batch_id, name, kind, seed, status, created_unix
		FROM batches
		ORDER BY created_unix DESC
		LIMIT ?
	`

	rows, err := db.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var batch Batch
		err := rows.Scan(
			&batch.BatchID,
			&batch.Name,
			&batch.Kind,
			&batch.Seed,
			&batch.Status,
			&batch.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	return batches, nil
}

// UpdateBatchStatus moves a batch to a new lifecycle state.
func (db *DB) UpdateBatchStatus(batchID, status string) error {
	if !ValidBatchStatuses[status] {
		return fmt.Errorf("invalid batch status %q", status)
	}

	result, err := db.DB.Exec(`UPDATE batches SET status = ? WHERE batch_id = ?`, status, batchID)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("batch not found")
	}

	return nil
}
