package postgresql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
)

const ticketColumns = `t.id, t.location_id, t.counter_id, t.user_id, t.service_date, t.sequence, t.queue_number,
	t.status, t.visitor_name, t.visitor_phone, t.notes, t.tracking_code, t.called_at, t.served_at,
	t.held_at, t.done_at, t.cancelled_at, t.cancel_reason, t.created_at, t.updated_at`

// transitionSets holds the timestamp bookkeeping for each action. called_at
// keeps the first call so wait time is measured once.
var transitionSets = map[ticket.Action]string{
	ticket.ActionCall:   "called_at = COALESCE(called_at, NOW())",
	ticket.ActionRecall: "called_at = COALESCE(called_at, NOW())",
	ticket.ActionServe:  "served_at = NOW()",
	ticket.ActionHold:   "held_at = NOW()",
	ticket.ActionDone:   "done_at = NOW()",
	ticket.ActionCancel: "cancelled_at = NOW(), cancel_reason = $4",
}

type ticketRepositoryImpl struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) ticket.TicketRepository {
	return &ticketRepositoryImpl{db: db}
}

func scanTicket(row pgx.Row, extra ...interface{}) (ticket.Ticket, error) {
	var t ticket.Ticket
	dest := []interface{}{
		&t.ID, &t.LocationID, &t.CounterID, &t.UserID, &t.ServiceDate, &t.Sequence, &t.QueueNumber,
		&t.Status, &t.VisitorName, &t.VisitorPhone, &t.Notes, &t.TrackingCode, &t.CalledAt, &t.ServedAt,
		&t.HeldAt, &t.DoneAt, &t.CancelledAt, &t.CancelReason, &t.CreatedAt, &t.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return t, err
}

// Create implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) Create(ctx context.Context, newTicket ticket.Ticket) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO tickets AS t (
			location_id, counter_id, user_id, service_date, sequence, queue_number, status,
			visitor_name, visitor_phone, notes, tracking_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + ticketColumns

	created, err := scanTicket(q.QueryRow(ctx, query,
		newTicket.LocationID,
		newTicket.CounterID,
		newTicket.UserID,
		newTicket.ServiceDate,
		newTicket.Sequence,
		newTicket.QueueNumber,
		newTicket.Status,
		newTicket.VisitorName,
		newTicket.VisitorPhone,
		newTicket.Notes,
		newTicket.TrackingCode,
	))
	if err != nil {
		if IsUniqueViolation(err, "uq_tickets_counter_date_sequence") || IsUniqueViolation(err, "uq_tickets_counter_date_queue_number") {
			return ticket.Ticket{}, fmt.Errorf("%w: %w", ticket.ErrTicketNumberConflict, err)
		}
		return ticket.Ticket{}, err
	}
	return created, nil
}

// GetByID implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) GetByID(ctx context.Context, id string) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)
	return scanTicket(q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = $1`, id))
}

// GetByTrackingCode implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) GetByTrackingCode(ctx context.Context, code string) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)
	return scanTicket(q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.tracking_code = $1`, code))
}

// List implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) List(ctx context.Context, filter ticket.TicketFilter) ([]ticket.TicketWithCounter, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.LocationIDs != nil {
		conditions = append(conditions, fmt.Sprintf("t.location_id = ANY($%d)", argIdx))
		args = append(args, filter.LocationIDs)
		argIdx++
	}
	if filter.LocationID != nil && *filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("t.location_id = $%d", argIdx))
		args = append(args, *filter.LocationID)
		argIdx++
	}
	if filter.CounterID != nil && *filter.CounterID != "" {
		conditions = append(conditions, fmt.Sprintf("t.counter_id = $%d", argIdx))
		args = append(args, *filter.CounterID)
		argIdx++
	}
	if filter.UserID != nil && *filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("t.user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Date != nil && *filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("t.service_date = $%d::date", argIdx))
		args = append(args, *filter.Date)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`(t.queue_number ILIKE $%d ESCAPE '\' OR t.visitor_name ILIKE $%d ESCAPE '\')`, argIdx, argIdx))
		args = append(args, containsPattern(*filter.Search))
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM tickets t WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	validSortColumns := map[string]string{
		"created_at":   "t.created_at",
		"sequence":     "t.sequence",
		"queue_number": "t.queue_number",
		"status":       "t.status",
		"service_date": "t.service_date",
	}
	sortColumn, ok := validSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "t.created_at"
	}
	sortOrder := "DESC"
	if strings.ToUpper(filter.SortOrder) == "ASC" {
		sortOrder = "ASC"
	}

	page := pagination.New(filter.Page, filter.Limit)
	query := fmt.Sprintf(`
		SELECT %s, c.name, c.prefix
		FROM tickets t
		JOIN counters c ON c.id = t.counter_id
		WHERE %s
		ORDER BY %s %s, t.id
		LIMIT $%d OFFSET $%d
	`, ticketColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []ticket.TicketWithCounter
	for rows.Next() {
		var item ticket.TicketWithCounter
		t, err := scanTicket(rows, &item.CounterName, &item.CounterPrefix)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ticket: %w", err)
		}
		item.Ticket = t
		tickets = append(tickets, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

// Transition implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) Transition(ctx context.Context, id string, from []ticket.Status, to ticket.Status, action ticket.Action, reason *string) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)

	set, ok := transitionSets[action]
	if !ok {
		return ticket.Ticket{}, fmt.Errorf("%w: unknown action %q", ticket.ErrInvalidTransition, action)
	}

	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	args := []interface{}{id, fromStrings, to}
	if action == ticket.ActionCancel {
		args = append(args, reason)
	}

	query := fmt.Sprintf(`
		UPDATE tickets AS t
		SET status = $3, %s, updated_at = NOW()
		WHERE t.id = $1 AND t.status = ANY($2)
		RETURNING %s
	`, set, ticketColumns)

	return scanTicket(q.QueryRow(ctx, query, args...))
}

// LockNextWaiting implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) LockNextWaiting(ctx context.Context, counterID string, serviceDate time.Time) (ticket.Ticket, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets t
		WHERE t.counter_id = $1 AND t.service_date = $2 AND t.status = 'WAITING'
		ORDER BY t.sequence ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	return scanTicket(q.QueryRow(ctx, query, counterID, serviceDate))
}

// CountActive implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) CountActive(ctx context.Context, counterID string, serviceDate time.Time, excludeID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE counter_id = $1 AND service_date = $2 AND status IN ('CALLING', 'SERVING')
			AND ($3 = '' OR id::text <> $3)
	`
	var n int
	err := q.QueryRow(ctx, query, counterID, serviceDate, excludeID).Scan(&n)
	return n, err
}

// CountWaitingAhead implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) CountWaitingAhead(ctx context.Context, counterID string, serviceDate time.Time, sequence int) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*)
		FROM tickets
		WHERE counter_id = $1 AND service_date = $2 AND status = 'WAITING' AND sequence < $3
	`
	var n int
	err := q.QueryRow(ctx, query, counterID, serviceDate, sequence).Scan(&n)
	return n, err
}

// AverageServiceSeconds implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) AverageServiceSeconds(ctx context.Context, counterID string, serviceDate time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (done_at - served_at)))), 0)::int
		FROM tickets
		WHERE counter_id = $1 AND service_date = $2 AND status = 'DONE'
			AND served_at IS NOT NULL AND done_at IS NOT NULL
	`
	var avg int
	err := q.QueryRow(ctx, query, counterID, serviceDate).Scan(&avg)
	return avg, err
}

// Board implements ticket.TicketRepository.
func (r *ticketRepositoryImpl) Board(ctx context.Context, locationID string, serviceDate time.Time) ([]ticket.CounterBoard, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT c.id, c.name, c.prefix, cur.queue_number, cur.status, COALESCE(w.waiting, 0), last.queue_number
		FROM counters c
		LEFT JOIN LATERAL (
			SELECT t.queue_number, t.status
			FROM tickets t
			WHERE t.counter_id = c.id AND t.service_date = $2 AND t.status IN ('CALLING', 'SERVING')
			ORDER BY t.updated_at DESC
			LIMIT 1
		) cur ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS waiting
			FROM tickets t
			WHERE t.counter_id = c.id AND t.service_date = $2 AND t.status = 'WAITING'
		) w ON TRUE
		LEFT JOIN LATERAL (
			SELECT t.queue_number
			FROM tickets t
			WHERE t.counter_id = c.id AND t.service_date = $2
			ORDER BY t.sequence DESC
			LIMIT 1
		) last ON TRUE
		WHERE c.location_id = $1 AND c.is_active
		ORDER BY c.prefix
	`

	rows, err := q.Query(ctx, query, locationID, serviceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	defer rows.Close()

	var board []ticket.CounterBoard
	for rows.Next() {
		var b ticket.CounterBoard
		if err := rows.Scan(&b.CounterID, &b.CounterName, &b.Prefix, &b.Current, &b.CurrentStatus, &b.WaitingCount, &b.LastIssued); err != nil {
			return nil, fmt.Errorf("failed to scan board row: %w", err)
		}
		board = append(board, b)
	}
	return board, rows.Err()
}
