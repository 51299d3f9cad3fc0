package summary

import "context"

type SummaryRepository interface {
	// Recompute rebuilds the summaries matching scope from tickets and
	// returns the number of rows written.
	Recompute(ctx context.Context, scope Scope) (int64, error)
	List(ctx context.Context, filter SummaryFilter) ([]DailySummary, int64, error)
}
