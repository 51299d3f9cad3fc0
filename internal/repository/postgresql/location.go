package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
)

const locationColumns = `id, owner_id, name, slug, address, timezone, is_active, created_at, updated_at`

type locationRepositoryImpl struct {
	db *database.DB
}

func NewLocationRepository(db *database.DB) location.LocationRepository {
	return &locationRepositoryImpl{db: db}
}

func scanLocation(row pgx.Row) (location.Location, error) {
	var l location.Location
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Slug, &l.Address, &l.Timezone, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Create implements location.LocationRepository.
func (r *locationRepositoryImpl) Create(ctx context.Context, newLocation location.Location) (location.Location, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO locations (owner_id, name, slug, address, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + locationColumns

	created, err := scanLocation(q.QueryRow(ctx, query,
		newLocation.OwnerID, newLocation.Name, newLocation.Slug, newLocation.Address, newLocation.Timezone,
	))
	if err != nil {
		if IsUniqueViolation(err, "") {
			return location.Location{}, location.ErrLocationSlugExists
		}
		return location.Location{}, err
	}
	return created, nil
}

// GetByID implements location.LocationRepository.
func (r *locationRepositoryImpl) GetByID(ctx context.Context, id string) (location.Location, error) {
	q := GetQuerier(ctx, r.db)
	return scanLocation(q.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
}

// GetBySlug implements location.LocationRepository.
func (r *locationRepositoryImpl) GetBySlug(ctx context.Context, slug string) (location.Location, error) {
	q := GetQuerier(ctx, r.db)
	return scanLocation(q.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE slug = $1`, slug))
}

// List implements location.LocationRepository.
func (r *locationRepositoryImpl) List(ctx context.Context, filter location.LocationFilter) ([]location.Location, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, *filter.OwnerID)
		argIdx++
	}
	if filter.IDs != nil {
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argIdx))
		args = append(args, filter.IDs)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(name ILIKE $%d ESCAPE '\' OR slug ILIKE $%d ESCAPE '\')`, argIdx, argIdx))
		args = append(args, containsPattern(*filter.Search))
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM locations WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count locations: %w", err)
	}

	page := pagination.New(filter.Page, filter.Limit)
	query := fmt.Sprintf(`
		SELECT %s
		FROM locations
		WHERE %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, locationColumns, whereClause, argIdx, argIdx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []location.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return locations, total, nil
}

// Update implements location.LocationRepository.
func (r *locationRepositoryImpl) Update(ctx context.Context, id string, req location.UpdateLocationRequest) (location.Location, error) {
	q := GetQuerier(ctx, r.db)

	updates := []string{}
	args := []interface{}{}
	argIdx := 1

	if req.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *req.Name)
		argIdx++
	}
	if req.Address != nil {
		updates = append(updates, fmt.Sprintf("address = $%d", argIdx))
		args = append(args, *req.Address)
		argIdx++
	}
	if req.Timezone != nil {
		updates = append(updates, fmt.Sprintf("timezone = $%d", argIdx))
		args = append(args, *req.Timezone)
		argIdx++
	}
	if req.IsActive != nil {
		updates = append(updates, fmt.Sprintf("is_active = $%d", argIdx))
		args = append(args, *req.IsActive)
		argIdx++
	}
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}
	updates = append(updates, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE locations SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(updates, ", "), argIdx, locationColumns)
	args = append(args, id)

	return scanLocation(q.QueryRow(ctx, query, args...))
}

// Deactivate implements location.LocationRepository.
func (r *locationRepositoryImpl) Deactivate(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE locations SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete implements location.LocationRepository.
func (r *locationRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// HasTickets implements location.LocationRepository.
func (r *locationRepositoryImpl) HasTickets(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE location_id = $1)`, id).Scan(&exists)
	return exists, err
}

// ListIDsByOwner implements location.LocationRepository.
func (r *locationRepositoryImpl) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id FROM locations WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
