package ticket

import "context"

type TicketService interface {
	// Issue takes a ticket for a counter. Works with or without an
	// authenticated caller.
	Issue(ctx context.Context, req IssueTicketRequest) (TicketResponse, error)

	Transition(ctx context.Context, req TransitionRequest) (TicketResponse, error)
	CallNext(ctx context.Context, counterID string) (TicketResponse, error)

	Get(ctx context.Context, id string) (TicketResponse, error)
	List(ctx context.Context, filter TicketFilter) (ListTicketResponse, error)
	ListMine(ctx context.Context, filter TicketFilter) (ListTicketResponse, error)
	Events(ctx context.Context, ticketID string) ([]EventResponse, error)

	Track(ctx context.Context, trackingCode string) (TrackResponse, error)
	Board(ctx context.Context, locationID string) (BoardResponse, error)
}
