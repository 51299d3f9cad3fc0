package ticket

import "errors"

var (
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrInvalidTransition    = errors.New("invalid ticket status transition")
	ErrCounterInactive      = errors.New("counter is not accepting tickets")
	ErrCounterClosed        = errors.New("counter is outside operating hours")
	ErrCounterFull          = errors.New("counter has reached its daily capacity")
	ErrCounterBusy          = errors.New("counter is already calling or serving a ticket")
	ErrQueueEmpty           = errors.New("no waiting tickets for this counter")
	ErrTicketNumberConflict = errors.New("could not allocate a ticket number, please retry")
	ErrTicketAccessDenied   = errors.New("no access to this ticket")
)
