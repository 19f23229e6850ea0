package db

import (
	"context"
	"database/sql"
	"fmt"
)

const aggregatedColumns = `task_id, label, method, agreement_rate, n_annotators, confidence, toxic_subtypes, tie_broken, adjudicated, computed_unix`

// GetAggregatedLabel retrieves the consensus label for a task.
func (db *DB) GetAggregatedLabel(taskID string) (*AggregatedLabel, error) {
	query := `
		SELECT ` + aggregatedColumns + `
		FROM aggregated_labels
		WHERE task_id = ?
	`

	var al AggregatedLabel
	var subtypes string
	err := db.DB.QueryRow(query, taskID).Scan(
		&al.TaskID,
		&al.Label,
		&al.Method,
		&al.AgreementRate,
		&al.NAnnotators,
		&al.Confidence,
		&subtypes,
		&al.TieBroken,
		&al.Adjudicated,
		&al.ComputedUnix,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("aggregated label not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregated label: %w", err)
	}
	al.ToxicSubtypes = unmarshalSubtypes(subtypes)

	return &al, nil
}

// ListAggregatedLabelsForBatch retrieves the consensus labels for a
// batch's tasks.
func (db *DB) ListAggregatedLabelsForBatch(batchID string) ([]AggregatedLabel, error) {
	query := `
		SELECT g.task_id, g.label, g.method, g.agreement_rate, g.n_annotators, g.confidence, g.toxic_subtypes, g.tie_broken, g.adjudicated, g.computed_unix
		FROM aggregated_labels g
		JOIN tasks t ON t.task_id = g.task_id
		WHERE t.batch_id = ?
		ORDER BY t.item_id
	`

	rows, err := db.DB.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregated labels: %w", err)
	}
	defer rows.Close()

	return scanAggregatedLabels(rows)
}

// ListAggregatedLabels retrieves every consensus label in the database.
func (db *DB) ListAggregatedLabels() ([]AggregatedLabel, error) {
	query := `
		SELECT ` + aggregatedColumns + `
		FROM aggregated_labels
		ORDER BY task_id
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregated labels: %w", err)
	}
	defer rows.Close()

	return scanAggregatedLabels(rows)
}

func scanAggregatedLabels(rows *sql.Rows) ([]AggregatedLabel, error) {
	var labels []AggregatedLabel
	for rows.Next() {
		var al AggregatedLabel
		var subtypes string
		err := rows.Scan(
			&al.TaskID,
			&al.Label,
			&al.Method,
			&al.AgreementRate,
			&al.NAnnotators,
			&al.Confidence,
			&subtypes,
			&al.TieBroken,
			&al.Adjudicated,
			&al.ComputedUnix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregated label: %w", err)
		}
		al.ToxicSubtypes = unmarshalSubtypes(subtypes)
		labels = append(labels, al)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aggregated labels: %w", err)
	}

	return labels, nil
}

// DeleteAggregatedForMethod removes every consensus label produced by
// the given method.
func (db *DB) DeleteAggregatedForMethod(ctx context.Context, method string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM aggregated_labels WHERE method = ?`,
		method,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete aggregated labels: %w", err)
	}
	return result.RowsAffected()
}

// AggregationStats contains summary statistics over the aggregated labels.
type AggregationStats struct {
	TotalLabels       int64
	MethodCounts      map[string]int64
	LabelCounts       map[int]int64
	MeanAgreement     float64
	TieBrokenCount    int64
	AdjudicatedCount  int64
	LowAgreementTasks int64
}

// AnalyseAggregation returns summary statistics over the aggregated
// labels, including the count of tasks whose agreement rate falls below
// the given warning threshold.
func (db *DB) AnalyseAggregation(ctx context.Context, lowAgreement float64) (*AggregationStats, error) {
	stats := &AggregationStats{
		MethodCounts: make(map[string]int64),
		LabelCounts:  make(map[int]int64),
	}

	// Get total count
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aggregated_labels`).Scan(&stats.TotalLabels); err != nil {
		return nil, fmt.Errorf("failed to count aggregated labels: %w", err)
	}

	if stats.TotalLabels == 0 {
		return stats, nil
	}

	// Get counts per method
	rows, err := db.QueryContext(ctx, `SELECT method, COUNT(*) FROM aggregated_labels GROUP BY method`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by method: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var count int64
		if err := rows.Scan(&method, &count); err != nil {
			return nil, err
		}
		stats.MethodCounts[method] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Get counts per label
	labelRows, err := db.QueryContext(ctx, `SELECT label, COUNT(*) FROM aggregated_labels GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by label: %w", err)
	}
	defer labelRows.Close()

	for labelRows.Next() {
		var label int
		var count int64
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.LabelCounts[label] = count
	}
	if err := labelRows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
		SELECT
			COALESCE(AVG(agreement_rate), 0),
			COALESCE(SUM(tie_broken), 0),
			COALESCE(SUM(adjudicated), 0),
			COALESCE(SUM(agreement_rate < ?), 0)
		FROM aggregated_labels
	`, lowAgreement).Scan(
		&stats.MeanAgreement,
		&stats.TieBrokenCount,
		&stats.AdjudicatedCount,
		&stats.LowAgreementTasks,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise agreement: %w", err)
	}

	return stats, nil
}
