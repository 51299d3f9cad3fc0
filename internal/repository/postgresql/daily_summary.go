package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
)

type summaryRepositoryImpl struct {
	db *database.DB
}

func NewSummaryRepository(db *database.DB) summary.SummaryRepository {
	return &summaryRepositoryImpl{db: db}
}

// Recompute implements summary.SummaryRepository.
func (r *summaryRepositoryImpl) Recompute(ctx context.Context, scope summary.Scope) (int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"t.service_date = $1"}
	args := []interface{}{scope.ServiceDate}
	argIdx := 2

	if scope.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("t.location_id = $%d", argIdx))
		args = append(args, *scope.LocationID)
		argIdx++
	}
	if scope.CounterID != nil {
		conditions = append(conditions, fmt.Sprintf("t.counter_id = $%d", argIdx))
		args = append(args, *scope.CounterID)
		argIdx++
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_summaries (
			location_id, counter_id, service_date, total_issued, total_done, total_cancelled,
			total_waiting, avg_wait_seconds, avg_service_seconds, updated_at
		)
		SELECT
			t.location_id,
			t.counter_id,
			t.service_date,
			COUNT(*),
			COUNT(*) FILTER (WHERE t.status = 'DONE'),
			COUNT(*) FILTER (WHERE t.status = 'CANCELLED'),
			COUNT(*) FILTER (WHERE t.status = 'WAITING'),
			COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (t.called_at - t.created_at)))
				FILTER (WHERE t.called_at IS NOT NULL)), 0)::int,
			COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (t.done_at - t.served_at)))
				FILTER (WHERE t.done_at IS NOT NULL AND t.served_at IS NOT NULL)), 0)::int,
			NOW()
		FROM tickets t
		WHERE %s
		GROUP BY t.location_id, t.counter_id, t.service_date
		ON CONFLICT (counter_id, service_date) DO UPDATE SET
			total_issued = EXCLUDED.total_issued,
			total_done = EXCLUDED.total_done,
			total_cancelled = EXCLUDED.total_cancelled,
			total_waiting = EXCLUDED.total_waiting,
			avg_wait_seconds = EXCLUDED.avg_wait_seconds,
			avg_service_seconds = EXCLUDED.avg_service_seconds,
			updated_at = EXCLUDED.updated_at
	`, strings.Join(conditions, " AND "))

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute daily summaries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// List implements summary.SummaryRepository.
func (r *summaryRepositoryImpl) List(ctx context.Context, filter summary.SummaryFilter) ([]summary.DailySummary, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"s.service_date BETWEEN $1::date AND $2::date"}
	args := []interface{}{filter.From, filter.To}
	argIdx := 3

	if filter.LocationIDs != nil {
		conditions = append(conditions, fmt.Sprintf("s.location_id = ANY($%d)", argIdx))
		args = append(args, filter.LocationIDs)
		argIdx++
	}
	if filter.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("s.location_id = $%d", argIdx))
		args = append(args, *filter.LocationID)
		argIdx++
	}
	if filter.CounterID != nil {
		conditions = append(conditions, fmt.Sprintf("s.counter_id = $%d", argIdx))
		args = append(args, *filter.CounterID)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM daily_summaries s WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count daily summaries: %w", err)
	}

	page := pagination.New(filter.Page, filter.Limit)
	query := fmt.Sprintf(`
		SELECT s.location_id, s.counter_id, c.name, s.service_date, s.total_issued, s.total_done,
			s.total_cancelled, s.total_waiting, s.avg_wait_seconds, s.avg_service_seconds, s.updated_at
		FROM daily_summaries s
		JOIN counters c ON c.id = s.counter_id
		WHERE %s
		ORDER BY s.service_date DESC, c.prefix ASC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list daily summaries: %w", err)
	}
	defer rows.Close()

	var summaries []summary.DailySummary
	for rows.Next() {
		var s summary.DailySummary
		if err := rows.Scan(
			&s.LocationID, &s.CounterID, &s.CounterName, &s.ServiceDate, &s.TotalIssued, &s.TotalDone,
			&s.TotalCancelled, &s.TotalWaiting, &s.AvgWaitSeconds, &s.AvgServiceSeconds, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}
