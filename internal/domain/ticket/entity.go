package ticket

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusCalling   Status = "CALLING"
	StatusServing   Status = "SERVING"
	StatusHold      Status = "HOLD"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusCalling, StatusServing, StatusHold, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

type Action string

const (
	ActionIssue  Action = "issue"
	ActionCall   Action = "call"
	ActionRecall Action = "recall"
	ActionServe  Action = "serve"
	ActionHold   Action = "hold"
	ActionDone   Action = "done"
	ActionCancel Action = "cancel"
)

var eventNames = map[Action]string{
	ActionIssue:  "ticket.issued",
	ActionCall:   "ticket.called",
	ActionRecall: "ticket.recalled",
	ActionServe:  "ticket.serving",
	ActionHold:   "ticket.held",
	ActionDone:   "ticket.done",
	ActionCancel: "ticket.cancelled",
}

// EventName is the live stream event emitted after the action.
func (a Action) EventName() string {
	if name, ok := eventNames[a]; ok {
		return name
	}
	return "ticket.updated"
}

type transition struct {
	from []Status
	to   Status
}

var transitions = map[Action]transition{
	ActionCall:   {from: []Status{StatusWaiting, StatusHold}, to: StatusCalling},
	ActionRecall: {from: []Status{StatusCalling}, to: StatusCalling},
	ActionServe:  {from: []Status{StatusCalling}, to: StatusServing},
	ActionHold:   {from: []Status{StatusCalling, StatusServing}, to: StatusHold},
	ActionDone:   {from: []Status{StatusServing}, to: StatusDone},
	ActionCancel: {from: []Status{StatusWaiting, StatusCalling, StatusServing, StatusHold}, to: StatusCancelled},
}

// ParseAction returns the operator action named s.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := transitions[a]
	return a, ok
}

// AllowedFrom lists the statuses action may be applied to.
func AllowedFrom(action Action) []Status {
	t, ok := transitions[action]
	if !ok {
		return nil
	}
	out := make([]Status, len(t.from))
	copy(out, t.from)
	return out
}

// Next returns the status reached by applying action to from.
func Next(from Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s ticket", ErrInvalidTransition, action, from)
}

// FormatQueueNumber renders the visitor-facing number, e.g. A-001 or B-1234.
func FormatQueueNumber(prefix string, sequence int) string {
	return fmt.Sprintf("%s-%03d", prefix, sequence)
}

type Ticket struct {
	ID           string
	LocationID   string
	CounterID    string
	UserID       *string
	ServiceDate  time.Time
	Sequence     int
	QueueNumber  string
	Status       Status
	VisitorName  *string
	VisitorPhone *string
	Notes        *string
	TrackingCode string
	CalledAt     *time.Time
	ServedAt     *time.Time
	HeldAt       *time.Time
	DoneAt       *time.Time
	CancelledAt  *time.Time
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TicketWithCounter carries the counter fields needed by list views.
type TicketWithCounter struct {
	Ticket
	CounterName   string
	CounterPrefix string
}

// Event is one row of a ticket's audit trail.
type Event struct {
	ID          string
	TicketID    string
	Action      Action
	FromStatus  *Status
	ToStatus    Status
	ActorUserID *string
	Note        *string
	CreatedAt   time.Time
}

// CounterBoard is the live state of one counter for display screens.
type CounterBoard struct {
	CounterID     string
	CounterName   string
	Prefix        string
	Current       *string
	CurrentStatus *Status
	WaitingCount  int
	LastIssued    *string
}
