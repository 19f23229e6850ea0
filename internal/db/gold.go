package db

import (
	"database/sql"
	"fmt"
)

// CreateGoldItem records the expert label for an item.
func (db *DB) CreateGoldItem(gold *GoldItem) error {
	if gold.Label != 0 && gold.Label != 1 {
		return fmt.Errorf("invalid label %d", gold.Label)
	}

	query := `
		INSERT INTO gold_items (item_id, label, toxic_subtypes, rationale)
		VALUES (?, ?, ?, ?)
	`

	_, err := db.DB.Exec(query, gold.ItemID, gold.Label, marshalSubtypes(gold.ToxicSubtypes), gold.Rationale)
	if err != nil {
		return fmt.Errorf("failed to create gold item: %w", err)
	}

	return nil
}

// ImportGoldItems bulk-upserts gold labels inside one transaction.
// Returns the number of rows written.
func (db *DB) ImportGoldItems(golds []GoldItem) (int, error) {
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
		INSERT INTO gold_items (item_id, label, toxic_subtypes, rationale)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			label = excluded.label,
			toxic_subtypes = excluded.toxic_subtypes,
			rationale = excluded.rationale
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare gold upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, gold := range golds {
		if gold.Label != 0 && gold.Label != 1 {
			return 0, fmt.Errorf("invalid label %d for item %s", gold.Label, gold.ItemID)
		}
		if _, err := stmt.Exec(gold.ItemID, gold.Label, marshalSubtypes(gold.ToxicSubtypes), gold.Rationale); err != nil {
			return 0, fmt.Errorf("failed to import gold item %s: %w", gold.ItemID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit gold import: %w", err)
	}

	return written, nil
}

// GetGoldItem retrieves the gold label for an item.
func (db *DB) GetGoldItem(itemID string) (*GoldItem, error) {
	query := `
		SELECT item_id, label, toxic_subtypes, rationale, created_unix
		FROM gold_items
		WHERE item_id = ?
	`

	var gold GoldItem
	var subtypes string
	err := db.DB.QueryRow(query, itemID).Scan(
		&gold.ItemID,
		&gold.Label,
		&subtypes,
		&gold.Rationale,
		&gold.CreatedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("gold item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gold item: %w", err)
	}
	gold.ToxicSubtypes = unmarshalSubtypes(subtypes)

	return &gold, nil
}

// ListGoldItems retrieves every gold label in the database.
func (db *DB) ListGoldItems() ([]GoldItem, error) {
	query := `
		SELECT item_id, label, toxic_subtypes, rationale, created_unix
		FROM gold_items
		ORDER BY item_id
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query gold items: %w", err)
	}
	defer rows.Close()

	var golds []GoldItem
	for rows.Next() {
		var gold GoldItem
		var subtypes string
		err := rows.Scan(
			&gold.ItemID,
			&gold.Label,
			&subtypes,
			&gold.Rationale,
			&gold.CreatedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gold item: %w", err)
		}
		gold.ToxicSubtypes = unmarshalSubtypes(subtypes)
		golds = append(golds, gold)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gold items: %w", err)
	}

	return golds, nil
}
