package ticket

import (
	"context"
	"time"
)

type TicketRepository interface {
	Create(ctx context.Context, newTicket Ticket) (Ticket, error)
	GetByID(ctx context.Context, id string) (Ticket, error)
	GetByTrackingCode(ctx context.Context, code string) (Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]TicketWithCounter, int64, error)

	// Transition moves a ticket to `to` only if its current status is in
	// `from`. It returns pgx.ErrNoRows when the guard does not match.
	Transition(ctx context.Context, id string, from []Status, to Status, action Action, reason *string) (Ticket, error)

	// LockNextWaiting returns the lowest-sequence WAITING ticket of the day,
	// row-locked and skipping rows locked by concurrent callers.
	LockNextWaiting(ctx context.Context, counterID string, serviceDate time.Time) (Ticket, error)

	CountActive(ctx context.Context, counterID string, serviceDate time.Time, excludeID string) (int, error)
	CountWaitingAhead(ctx context.Context, counterID string, serviceDate time.Time, sequence int) (int, error)
	AverageServiceSeconds(ctx context.Context, counterID string, serviceDate time.Time) (int, error)
	Board(ctx context.Context, locationID string, serviceDate time.Time) ([]CounterBoard, error)
}

// SequenceRepository hands out per-counter, per-day ticket sequences.
type SequenceRepository interface {
	// Next increments and returns the counter's sequence for serviceDate.
	// Must run inside a transaction: the row stays locked until commit.
	Next(ctx context.Context, counterID string, serviceDate time.Time) (int, error)
}

type EventRepository interface {
	Create(ctx context.Context, event Event) (Event, error)
	ListByTicket(ctx context.Context, ticketID string) ([]Event, error)
}
