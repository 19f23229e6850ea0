package db

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dhvani-data/annotation.report/internal/aggregate"
)

// AggregateCLI provides CLI operations for consensus label management.
// It wraps AggregationWorker and DB methods to provide a testable
// interface for the `annotation-report aggregate` subcommand.
type AggregateCLI struct {
	DB           *DB
	Config       aggregate.Config
	LowAgreement float64   // threshold below which tasks are reported as low agreement
	Output       io.Writer // where to write output (os.Stdout by default)
}

// NewAggregateCLI creates a new AggregateCLI instance.
func NewAggregateCLI(db *DB, cfg aggregate.Config, lowAgreement float64, output io.Writer) *AggregateCLI {
	return &AggregateCLI{
		DB:           db,
		Config:       cfg,
		LowAgreement: lowAgreement,
		Output:       output,
	}
}

func (c *AggregateCLI) method() string {
	if c.Config.Method != "" {
		return c.Config.Method
	}
	return aggregate.MethodMajorityVote
}

// Run aggregates one batch by name.
func (c *AggregateCLI) Run(ctx context.Context, batchName string) error {
	batch, err := c.DB.GetBatchByName(batchName)
	if err != nil {
		return fmt.Errorf("failed to find batch %q: %w", batchName, err)
	}

	worker := NewAggregationWorker(c.DB, c.Config)
	written, err := worker.RunBatch(ctx, batch.BatchID)
	if err != nil {
		return fmt.Errorf("failed to aggregate batch %q: %w", batchName, err)
	}

	fmt.Fprintf(c.Output, "Aggregated %d tasks in batch %q with method %s\n", written, batchName, c.method())
	return nil
}

// Analyse shows consensus label statistics. Returns the statistics for
// programmatic use.
func (c *AggregateCLI) Analyse(ctx context.Context) (*AggregationStats, error) {
	stats, err := c.DB.AnalyseAggregation(ctx, c.LowAgreement)
	if err != nil {
		return nil, fmt.Errorf("failed to analyse aggregation: %w", err)
	}

	fmt.Fprintf(c.Output, "Aggregation Statistics\n")
	fmt.Fprintf(c.Output, "======================\n")
	fmt.Fprintf(c.Output, "Total labels: %d\n\n", stats.TotalLabels)

	if stats.TotalLabels == 0 {
		fmt.Fprintf(c.Output, "No consensus labels yet. Run:\n")
		fmt.Fprintf(c.Output, "  annotation-report aggregate run <batch>\n")
		return stats, nil
	}

	fmt.Fprintf(c.Output, "By method:\n")
	methods := make([]string, 0, len(stats.MethodCounts))
	for method := range stats.MethodCounts {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		fmt.Fprintf(c.Output, "  %-20s %d\n", method, stats.MethodCounts[method])
	}

	fmt.Fprintf(c.Output, "\nBy label:\n")
	fmt.Fprintf(c.Output, "  %-20s %d\n", "non-toxic", stats.LabelCounts[0])
	fmt.Fprintf(c.Output, "  %-20s %d\n", "toxic", stats.LabelCounts[1])

	fmt.Fprintf(c.Output, "\nMean agreement: %.3f\n", stats.MeanAgreement)
	fmt.Fprintf(c.Output, "Tie-broken: %d\n", stats.TieBrokenCount)
	fmt.Fprintf(c.Output, "Adjudicated: %d\n", stats.AdjudicatedCount)

	if stats.LowAgreementTasks > 0 {
		fmt.Fprintf(c.Output, "\n⚠️  %d tasks below %.2f agreement, consider adjudication:\n", stats.LowAgreementTasks, c.LowAgreement)
		fmt.Fprintf(c.Output, "  annotation-report adjudicate template <batch>\n")
	} else {
		fmt.Fprintf(c.Output, "\n✅ No low-agreement tasks\n")
	}

	return stats, nil
}

// Delete removes all consensus labels produced by a given method.
// Returns the number of deleted labels.
func (c *AggregateCLI) Delete(ctx context.Context, method string) (int64, error) {
	deleted, err := c.DB.DeleteAggregatedForMethod(ctx, method)
	if err != nil {
		return 0, fmt.Errorf("failed to delete labels: %w", err)
	}

	fmt.Fprintf(c.Output, "Deleted %d labels with method = %q\n", deleted, method)
	return deleted, nil
}

// Rebuild deletes consensus labels for the configured method and
// recomputes every batch.
func (c *AggregateCLI) Rebuild(ctx context.Context) error {
	fmt.Fprintf(c.Output, "Rebuilding labels with method = %q\n", c.method())

	deleted, err := c.DB.DeleteAggregatedForMethod(ctx, c.method())
	if err != nil {
		return fmt.Errorf("failed to delete existing labels: %w", err)
	}
	fmt.Fprintf(c.Output, "Deleted %d existing labels\n", deleted)

	worker := NewAggregationWorker(c.DB, c.Config)
	if err := worker.RunOnce(ctx); err != nil {
		return fmt.Errorf("failed to rebuild labels: %w", err)
	}

	fmt.Fprintf(c.Output, "Rebuild complete\n")
	return nil
}

// PrintUsage prints the aggregate subcommand usage.
func (c *AggregateCLI) PrintUsage() {
	fmt.Fprintln(c.Output, "Usage: annotation-report aggregate <command> [options]")
	fmt.Fprintln(c.Output, "")
	fmt.Fprintln(c.Output, "Commands:")
	fmt.Fprintln(c.Output, "  run <batch>       Compute consensus labels for one batch")
	fmt.Fprintln(c.Output, "  analyse           Show consensus label statistics")
	fmt.Fprintln(c.Output, "  rebuild           Delete the configured method's labels and recompute every batch")
	fmt.Fprintln(c.Output, "  delete <method>   Delete all labels produced by a method")
	fmt.Fprintln(c.Output, "")
}
