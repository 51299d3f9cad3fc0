package summary

import (
	"context"
	"time"
)

type SummaryService interface {
	// Recompute is the authenticated endpoint; scope is checked against the caller.
	Recompute(ctx context.Context, req RecomputeRequest) (RecomputeResponse, error)
	// RecomputeRange is used by the scheduler and the rollup command.
	RecomputeRange(ctx context.Context, from, to time.Time, locationID *string) (int64, error)
	// RefreshCounter recomputes a single counter-day after a ticket change.
	RefreshCounter(ctx context.Context, locationID, counterID string, serviceDate time.Time) error
	List(ctx context.Context, filter SummaryFilter) (ListSummaryResponse, error)
}
