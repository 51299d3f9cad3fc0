package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/waitless/waitless-backend-go/internal/domain/dashboard"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
)

type dashboardRepositoryImpl struct {
	db *database.DB
}

func NewDashboardRepository(db *database.DB) dashboard.DashboardRepository {
	return &dashboardRepositoryImpl{db: db}
}

// scopeArg returns nil for "all locations", which the queries test with $1::uuid[] IS NULL.
func scopeArg(locationIDs []string) interface{} {
	if len(locationIDs) == 0 {
		return nil
	}
	return locationIDs
}

// GetTotals sums summaries over the range; averages are weighted by ticket volume
func (r *dashboardRepositoryImpl) GetTotals(ctx context.Context, locationIDs []string, from, to time.Time) (dashboard.Totals, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COALESCE(SUM(total_issued), 0),
			COALESCE(SUM(total_done), 0),
			COALESCE(SUM(total_cancelled), 0),
			COALESCE(ROUND(SUM(avg_wait_seconds * total_issued)::numeric / NULLIF(SUM(total_issued), 0)), 0)::int,
			COALESCE(ROUND(SUM(avg_service_seconds * total_done)::numeric / NULLIF(SUM(total_done), 0)), 0)::int
		FROM daily_summaries
		WHERE service_date BETWEEN $2 AND $3
			AND ($1::uuid[] IS NULL OR location_id = ANY($1::uuid[]))
	`

	var t dashboard.Totals
	err := q.QueryRow(ctx, query, scopeArg(locationIDs), from, to).Scan(
		&t.Issued, &t.Done, &t.Cancelled, &t.AvgWaitSeconds, &t.AvgServiceSeconds,
	)
	if err != nil {
		return dashboard.Totals{}, fmt.Errorf("failed to get dashboard totals: %w", err)
	}
	return t, nil
}

// GetDailySeries returns one point per day in the range, zero-filled
func (r *dashboardRepositoryImpl) GetDailySeries(ctx context.Context, locationIDs []string, from, to time.Time) ([]dashboard.DailyPoint, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			to_char(d.day, 'YYYY-MM-DD'),
			COALESCE(SUM(s.total_issued), 0),
			COALESCE(SUM(s.total_done), 0),
			COALESCE(SUM(s.total_cancelled), 0),
			COALESCE(ROUND(SUM(s.avg_wait_seconds * s.total_issued)::numeric / NULLIF(SUM(s.total_issued), 0)), 0)::int
		FROM generate_series($2::date, $3::date, INTERVAL '1 day') AS d(day)
		LEFT JOIN daily_summaries s
			ON s.service_date = d.day::date
			AND ($1::uuid[] IS NULL OR s.location_id = ANY($1::uuid[]))
		GROUP BY d.day
		ORDER BY d.day
	`

	rows, err := q.Query(ctx, query, scopeArg(locationIDs), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily series: %w", err)
	}
	defer rows.Close()

	points := []dashboard.DailyPoint{}
	for rows.Next() {
		var p dashboard.DailyPoint
		if err := rows.Scan(&p.Date, &p.Issued, &p.Done, &p.Cancelled, &p.AvgWaitSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan daily point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetCounterBreakdown aggregates the range per counter, busiest first
func (r *dashboardRepositoryImpl) GetCounterBreakdown(ctx context.Context, locationIDs []string, from, to time.Time) ([]dashboard.CounterBreakdown, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			c.id, c.name, c.location_id,
			COALESCE(SUM(s.total_issued), 0),
			COALESCE(SUM(s.total_done), 0),
			COALESCE(SUM(s.total_cancelled), 0),
			COALESCE(ROUND(SUM(s.avg_wait_seconds * s.total_issued)::numeric / NULLIF(SUM(s.total_issued), 0)), 0)::int,
			COALESCE(ROUND(SUM(s.avg_service_seconds * s.total_done)::numeric / NULLIF(SUM(s.total_done), 0)), 0)::int
		FROM daily_summaries s
		JOIN counters c ON c.id = s.counter_id
		WHERE s.service_date BETWEEN $2 AND $3
			AND ($1::uuid[] IS NULL OR s.location_id = ANY($1::uuid[]))
		GROUP BY c.id, c.name, c.location_id
		ORDER BY SUM(s.total_issued) DESC, c.name
	`

	rows, err := q.Query(ctx, query, scopeArg(locationIDs), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get counter breakdown: %w", err)
	}
	defer rows.Close()

	counters := []dashboard.CounterBreakdown{}
	for rows.Next() {
		var c dashboard.CounterBreakdown
		if err := rows.Scan(
			&c.CounterID, &c.CounterName, &c.LocationID, &c.Issued, &c.Done, &c.Cancelled,
			&c.AvgWaitSeconds, &c.AvgServiceSeconds,
		); err != nil {
			return nil, fmt.Errorf("failed to scan counter breakdown: %w", err)
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

// GetLiveStats counts tickets on each location's own current date
func (r *dashboardRepositoryImpl) GetLiveStats(ctx context.Context, locationIDs []string) (dashboard.LiveStats, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) FILTER (WHERE t.status = 'WAITING'),
			COUNT(*) FILTER (WHERE t.status = 'CALLING'),
			COUNT(*) FILTER (WHERE t.status = 'SERVING'),
			COUNT(*) FILTER (WHERE t.status = 'HOLD'),
			COUNT(*) FILTER (WHERE t.status = 'DONE')
		FROM tickets t
		JOIN locations l ON l.id = t.location_id
		WHERE t.service_date = (NOW() AT TIME ZONE l.timezone)::date
			AND ($1::uuid[] IS NULL OR t.location_id = ANY($1::uuid[]))
	`

	var s dashboard.LiveStats
	err := q.QueryRow(ctx, query, scopeArg(locationIDs)).Scan(&s.Waiting, &s.Calling, &s.Serving, &s.Hold, &s.Done)
	if err != nil {
		return dashboard.LiveStats{}, fmt.Errorf("failed to get live stats: %w", err)
	}
	return s, nil
}
