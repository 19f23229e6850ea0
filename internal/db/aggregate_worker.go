package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// AggregationWorker recomputes consensus labels from the stored
// annotations and adjudications. It can run once over a single batch or
// periodically over every batch, so fresh annotation imports converge
// to aggregated labels without an operator step.
type AggregationWorker struct {
	DB       *DB
	Config   aggregate.Config
	Interval time.Duration // how often to run (e.g., 1h)
	StopChan chan struct{}
}

func NewAggregationWorker(db *DB, cfg aggregate.Config) *AggregationWorker {
	return &AggregationWorker{
		DB:       db,
		Config:   cfg,
		Interval: time.Hour,
		StopChan: make(chan struct{}),
	}
}

// Start runs the periodic worker loop in a goroutine.
func (w *AggregationWorker) Start() {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.RunOnce(context.Background()); err != nil {
					fmt.Printf("aggregation worker run error: %v\n", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop requests the worker to stop.
func (w *AggregationWorker) Stop() {
	close(w.StopChan)
}

// RunOnce recomputes consensus labels for every batch.
func (w *AggregationWorker) RunOnce(ctx context.Context) error {
	batches, err := w.DB.ListBatches(-1)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}

	for _, batch := range batches {
		if _, err := w.RunBatch(ctx, batch.BatchID); err != nil {
			return fmt.Errorf("failed to aggregate batch %s: %w", batch.Name, err)
		}
	}

	return nil
}

// RunBatch recomputes consensus labels for one batch and upserts them
// into aggregated_labels. Tasks without annotations produce no label.
// Returns the number of labels written.
func (w *AggregationWorker) RunBatch(ctx context.Context, batchID string) (int, error) {
	batch, err := w.DB.GetBatch(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to load batch: %w", err)
	}

	tasks, err := w.DB.ListTasksForBatch(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	annotations, err := w.DB.ListAnnotationsForBatch(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to list annotations: %w", err)
	}
	if len(annotations) == 0 {
		return 0, nil
	}

	adjudications, err := w.DB.ListAdjudicationsForBatch(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to list adjudications: %w", err)
	}

	votes := make([]aggregate.Vote, 0, len(annotations))
	for _, a := range annotations {
		votes = append(votes, aggregate.Vote{
			TaskID:      a.TaskID,
			AnnotatorID: a.AnnotatorID,
			Label:       a.Label,
			Subtypes:    a.ToxicSubtypes,
			Confidence:  a.Confidence,
		})
	}
	rulings := make([]aggregate.Ruling, 0, len(adjudications))
	for _, adj := range adjudications {
		rulings = append(rulings, aggregate.Ruling{
			TaskID:   adj.TaskID,
			Label:    adj.Label,
			Subtypes: adj.ToxicSubtypes,
		})
	}

	result, err := aggregate.Aggregate(votes, rulings, w.Config)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate batch %s: %w", batch.Name, err)
	}

	tx, err := w.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("warning: failed to rollback transaction: %v\n", err)
		}
	}()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO aggregated_labels (task_id, label, method, agreement_rate, n_annotators, confidence, toxic_subtypes, tie_broken, adjudicated, computed_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, UNIXEPOCH('subsec'))
		ON CONFLICT(task_id) DO UPDATE SET
			label = excluded.label,
			method = excluded.method,
			agreement_rate = excluded.agreement_rate,
			n_annotators = excluded.n_annotators,
			confidence = excluded.confidence,
			toxic_subtypes = excluded.toxic_subtypes,
			tie_broken = excluded.tie_broken,
			adjudicated = excluded.adjudicated,
			computed_unix = UNIXEPOCH('subsec')
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare label upsert: %w", err)
	}
	defer upsert.Close()

	for _, label := range result.Labels {
		_, err := upsert.ExecContext(ctx,
			label.TaskID,
			label.Label,
			label.Method,
			label.AgreementRate,
			label.NAnnotators,
			label.Confidence,
			marshalSubtypes(label.Subtypes),
			label.TieBroken,
			label.Adjudicated,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert label for task %s: %w", label.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit labels: %w", err)
	}

	written := len(result.Labels)
	unlabelled := len(tasks) - written
	monitoring.Logf("✓ aggregated batch %s: %d labels written, %d tasks without annotations", batch.Name, written, unlabelled)

	// Exported batches are immutable; everything else advances once it
	// holds consensus labels.
	if written > 0 && batch.Status != "exported" && batch.Status != "aggregated" {
		if err := w.DB.UpdateBatchStatus(batchID, "aggregated"); err != nil {
			return written, fmt.Errorf("failed to update batch status: %w", err)
		}
	}

	return written, nil
}
