package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// CreateTasksForBatch creates one task per item under the given batch,
// all inside a single transaction. Returns the created tasks.
func (db *DB) CreateTasksForBatch(batchID string, itemIDs []string) ([]Task, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("warning: failed to rollback transaction: %v\n", err)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO tasks (task_id, item_id, batch_id)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	tasks := make([]Task, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		task := Task{
			TaskID:  uuid.New().String(),
			ItemID:  itemID,
			BatchID: batchID,
		}
		if _, err := stmt.Exec(task.TaskID, task.ItemID, task.BatchID); err != nil {
			return nil, fmt.Errorf("failed to insert task for item %s: %w", itemID, err)
		}
		tasks = append(tasks, task)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task insert: %w", err)
	}

	return tasks, nil
}

// GetTask retrieves a task by ID.
func (db *DB) GetTask(taskID string) (*Task, error) {
	query := `
		SELECT task_id, item_id, batch_id, created_unix
		FROM tasks
		WHERE task_id = ?
	`

	var task Task
	err := db.DB.QueryRow(query, taskID).Scan(
		&task.TaskID,
		&task.ItemID,
		&task.BatchID,
		&task.CreatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// ListTasksForBatch retrieves all tasks in a batch.
func (db *DB) ListTasksForBatch(batchID string) ([]Task, error) {
	query := `
		SELECT task_id, item_id, batch_id, created_unix
		FROM tasks
		WHERE batch_id = ?
		ORDER BY item_id
	`

	rows, err := db.DB.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListAllTasks retrieves every task in the database.
func (db *DB) ListAllTasks() ([]Task, error) {
	query := `
		SELECT task_id, item_id, batch_id, created_unix
		FROM tasks
		ORDER BY batch_id, item_id
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var task Task
		err := rows.Scan(
			&task.TaskID,
			&task.ItemID,
			&task.BatchID,
			&task.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}
