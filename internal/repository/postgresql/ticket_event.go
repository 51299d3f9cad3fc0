package postgresql

import (
	"context"
	"fmt"

	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
)

type eventRepositoryImpl struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) ticket.EventRepository {
	return &eventRepositoryImpl{db: db}
}

// Create implements ticket.EventRepository.
func (r *eventRepositoryImpl) Create(ctx context.Context, event ticket.Event) (ticket.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO ticket_events (ticket_id, action, from_status, to_status, actor_user_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	created := event
	err := q.QueryRow(ctx, query,
		event.TicketID, event.Action, event.FromStatus, event.ToStatus, event.ActorUserID, event.Note,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return ticket.Event{}, err
	}
	return created, nil
}

// ListByTicket implements ticket.EventRepository.
func (r *eventRepositoryImpl) ListByTicket(ctx context.Context, ticketID string) ([]ticket.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, ticket_id, action, from_status, to_status, actor_user_id, note, created_at
		FROM ticket_events
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket events: %w", err)
	}
	defer rows.Close()

	var events []ticket.Event
	for rows.Next() {
		var e ticket.Event
		if err := rows.Scan(&e.ID, &e.TicketID, &e.Action, &e.FromStatus, &e.ToStatus, &e.ActorUserID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
