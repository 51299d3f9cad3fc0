package dashboard

import (
	"context"
	"time"
)

// Totals aggregates daily_summaries over a range
type Totals struct {
	Issued            int64
	Done              int64
	Cancelled         int64
	AvgWaitSeconds    int
	AvgServiceSeconds int
}

// LiveStats counts today's tickets by status
type LiveStats struct {
	Waiting int64
	Calling int64
	Serving int64
	Hold    int64
	Done    int64
}

// DashboardRepository defines the interface for dashboard data access.
// An empty locationIDs slice means every location.
type DashboardRepository interface {
	GetTotals(ctx context.Context, locationIDs []string, from, to time.Time) (Totals, error)
	GetDailySeries(ctx context.Context, locationIDs []string, from, to time.Time) ([]DailyPoint, error)
	GetCounterBreakdown(ctx context.Context, locationIDs []string, from, to time.Time) ([]CounterBreakdown, error)

	// GetLiveStats counts tickets for each location's current service date
	GetLiveStats(ctx context.Context, locationIDs []string) (LiveStats, error)
}
