package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateItem inserts a single item into the database.
func (db *DB) CreateItem(item *Item) error {
	if item.Pool == "" {
		item.Pool = PoolUnsampled
	}
	if !ValidPools[item.Pool] {
		return fmt.Errorf("invalid pool %q", item.Pool)
	}

	query := `
		INSERT INTO items (item_id, text, source, language, split, code_mixed, pool)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(
		query,
		item.ItemID,
		item.Text,
		item.Source,
		item.Language,
		item.Split,
		item.CodeMixed,
		item.Pool,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// InsertItems bulk-inserts items inside a single transaction. Items whose
// IDs already exist are skipped. Returns the number of rows inserted.
func (db *DB) InsertItems(items []Item) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			// ErrTxDone means transaction was already committed/rolled back
			fmt.Printf("warning: failed to rollback transaction: %v\n", err)
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO items (item_id, text, source, language, split, code_mixed, pool)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, item := range items {
		pool := item.Pool
		if pool == "" {
			pool = PoolUnsampled
		}
		result, err := stmt.Exec(item.ItemID, item.Text, item.Source, item.Language, item.Split, item.CodeMixed, pool)
		if err != nil {
			return 0, fmt.Errorf("failed to insert item %s: %w", item.ItemID, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit item insert: %w", err)
	}

	return inserted, nil
}

// GetItem retrieves an item by ID.
func (db *DB) GetItem(itemID string) (*Item, error) {
	query := `
		SELECT item_id, text, source, language, split, code_mixed, pool, created_unix
		FROM items
		WHERE item_id = ?
	`

	var item Item
	err := db.DB.QueryRow(query, itemID).Scan(
		&item.ItemID,
		&item.Text,
		&item.Source,
		&item.Language,
		&item.Split,
		&item.CodeMixed,
		&item.Pool,
		&item.CreatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// ListItemsByPool retrieves items in the given pool, oldest first.
// A limit of 0 returns all matching items.
func (db *DB) ListItemsByPool(pool string, limit int) ([]Item, error) {
	if !ValidPools[pool] {
		return nil, fmt.Errorf("invalid pool %q", pool)
	}

	query := `
		SELECT item_id, text, source, language, split, code_mixed, pool, created_unix
		FROM items
		WHERE pool = ?
		ORDER BY created_unix, item_id
	`
	args := []interface{}{pool}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ItemID,
			&item.Text,
			&item.Source,
			&item.Language,
			&item.Split,
			&item.CodeMixed,
			&item.Pool,
			&item.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// ListItemsForBatch retrieves the items behind a batch's tasks.
func (db *DB) ListItemsForBatch(batchID string) ([]Item, error) {
	query := `
		SELECT i.item_id, i.text, i.source, i.language, i.split, i.code_mixed, i.pool, i.created_unix
		FROM items i
		JOIN tasks t ON t.item_id = i.item_id
		WHERE t.batch_id = ?
		ORDER BY i.item_id
	`

	rows, err := db.DB.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ItemID,
			&item.Text,
			&item.Source,
			&item.Language,
			&item.Split,
			&item.CodeMixed,
			&item.Pool,
			&item.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// CountItemsByPool returns the number of items in each pool.
func (db *DB) CountItemsByPool() (map[string]int, error) {
	rows, err := db.DB.Query(`SELECT pool, COUNT(*) FROM items GROUP BY pool`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var pool string
		var count int
		if err := rows.Scan(&pool, &count); err != nil {
			return nil, fmt.Errorf("failed to scan item count: %w", err)
		}
		counts[pool] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item counts: %w", err)
	}

	return counts, nil
}

// MarkItemsPool moves the given items into a pool inside one transaction.
func (db *DB) MarkItemsPool(itemIDs []string, pool string) error {
	if !ValidPools[pool] {
		return fmt.Errorf("invalid pool %q", pool)
	}
	if len(itemIDs) == 0 {
		return nil
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

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]interface{}, 0, len(itemIDs)+1)
	args = append(args, pool)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`UPDATE items SET pool = ? WHERE item_id IN (%s)`, placeholders)
	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update item pool: %w", err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if updated != int64(len(itemIDs)) {
		return fmt.Errorf("expected to move %d items to pool %q, moved %d", len(itemIDs), pool, updated)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pool update: %w", err)
	}

	return nil
}
