package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
)

const counterColumns = `id, location_id, name, prefix, capacity_per_day,
	to_char(open_time, 'HH24:MI'), to_char(close_time, 'HH24:MI'), is_active, created_at, updated_at`

type counterRepositoryImpl struct {
	db *database.DB
}

func NewCounterRepository(db *database.DB) counter.CounterRepository {
	return &counterRepositoryImpl{db: db}
}

func scanCounter(row pgx.Row) (counter.Counter, error) {
	var c counter.Counter
	err := row.Scan(
		&c.ID, &c.LocationID, &c.Name, &c.Prefix, &c.CapacityPerDay,
		&c.OpenTime, &c.CloseTime, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Create implements counter.CounterRepository.
func (r *counterRepositoryImpl) Create(ctx context.Context, newCounter counter.Counter) (counter.Counter, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO counters (location_id, name, prefix, capacity_per_day, open_time, close_time)
		VALUES ($1, $2, $3, $4, $5::time, $6::time)
		RETURNING ` + counterColumns

	created, err := scanCounter(q.QueryRow(ctx, query,
		newCounter.LocationID, newCounter.Name, newCounter.Prefix, newCounter.CapacityPerDay,
		newCounter.OpenTime, newCounter.CloseTime,
	))
	if err != nil {
		if IsUniqueViolation(err, "uq_counters_location_prefix") {
			return counter.Counter{}, counter.ErrCounterPrefixExists
		}
		return counter.Counter{}, err
	}
	return created, nil
}

// GetByID implements counter.CounterRepository.
func (r *counterRepositoryImpl) GetByID(ctx context.Context, id string) (counter.Counter, error) {
	q := GetQuerier(ctx, r.db)
	return scanCounter(q.QueryRow(ctx, `SELECT `+counterColumns+` FROM counters WHERE id = $1`, id))
}

// GetForUpdate implements counter.CounterRepository.
func (r *counterRepositoryImpl) GetForUpdate(ctx context.Context, id string) (counter.Counter, error) {
	q := GetQuerier(ctx, r.db)
	return scanCounter(q.QueryRow(ctx, `SELECT `+counterColumns+` FROM counters WHERE id = $1 FOR UPDATE`, id))
}

// ListByLocation implements counter.CounterRepository.
func (r *counterRepositoryImpl) ListByLocation(ctx context.Context, locationID string, activeOnly bool) ([]counter.Counter, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + counterColumns + ` FROM counters WHERE location_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY prefix`

	rows, err := q.Query(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	defer rows.Close()

	var counters []counter.Counter
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

// Update implements counter.CounterRepository.
func (r *counterRepositoryImpl) Update(ctx context.Context, id string, req counter.UpdateCounterRequest) (counter.Counter, error) {
	q := GetQuerier(ctx, r.db)

	updates := []string{}
	args := []interface{}{}
	argIdx := 1

	set := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Prefix != nil {
		set("prefix", *req.Prefix)
	}
	if req.CapacityPerDay != nil {
		set("capacity_per_day", *req.CapacityPerDay)
	}
	if req.ClearHours {
		updates = append(updates, "open_time = NULL", "close_time = NULL")
	} else if req.OpenTime != nil && req.CloseTime != nil {
		updates = append(updates, fmt.Sprintf("open_time = $%d::time", argIdx), fmt.Sprintf("close_time = $%d::time", argIdx+1))
		args = append(args, *req.OpenTime, *req.CloseTime)
		argIdx += 2
	}
	if req.IsActive != nil {
		set("is_active", *req.IsActive)
	}
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}
	updates = append(updates, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE counters SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(updates, ", "), argIdx, counterColumns)
	args = append(args, id)

	updated, err := scanCounter(q.QueryRow(ctx, query, args...))
	if err != nil {
		if IsUniqueViolation(err, "uq_counters_location_prefix") {
			return counter.Counter{}, counter.ErrCounterPrefixExists
		}
		return counter.Counter{}, err
	}
	return updated, nil
}

// Delete implements counter.CounterRepository.
func (r *counterRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM counters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// HasTickets implements counter.CounterRepository.
func (r *counterRepositoryImpl) HasTickets(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE counter_id = $1)`, id).Scan(&exists)
	return exists, err
}
