package ticket

import (
	"strings"
	"time"

	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type IssueTicketRequest struct {
	CounterID    string  `json:"counter_id"`
	VisitorName  *string `json:"visitor_name,omitempty"`
	VisitorPhone *string `json:"visitor_phone,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

func (r *IssueTicketRequest) Validate() error {
	var errs validator.ValidationErrors

	r.VisitorName = trimmedOrNil(r.VisitorName)
	r.VisitorPhone = trimmedOrNil(r.VisitorPhone)
	r.Notes = trimmedOrNil(r.Notes)

	if validator.IsEmpty(r.CounterID) {
		errs.Add("counter_id", "counter_id is required")
	} else if !validator.IsValidUUID(r.CounterID) {
		errs.Add("counter_id", "counter_id must be a valid UUID")
	}
	if r.VisitorName != nil && len(*r.VisitorName) > 255 {
		errs.Add("visitor_name", "visitor_name must not exceed 255 characters")
	}
	if r.VisitorPhone != nil && !validator.IsValidPhoneNumber(*r.VisitorPhone) {
		errs.Add("visitor_phone", "visitor_phone must be 7-15 digits with an optional leading +")
	}
	if r.Notes != nil && len(*r.Notes) > 1000 {
		errs.Add("notes", "notes must not exceed 1000 characters")
	}

	return errs.Err()
}

type TransitionRequest struct {
	TicketID string  `json:"-"`
	Action   Action  `json:"-"`
	Note     *string `json:"note,omitempty"`
}

func (r *TransitionRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Note = trimmedOrNil(r.Note)

	if !validator.IsValidUUID(r.TicketID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if _, ok := ParseAction(string(r.Action)); !ok {
		errs.Add("action", "action must be one of: call, recall, serve, hold, done, cancel")
	}
	if r.Note != nil && len(*r.Note) > 500 {
		errs.Add("note", "note must not exceed 500 characters")
	}

	return errs.Err()
}

type TicketFilter struct {
	LocationID  *string
	CounterID   *string
	Status      *string
	Date        *string // YYYY-MM-DD
	Search      *string
	UserID      *string  // set by the service for ListMine
	LocationIDs []string // tenant scope, set by the service
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}

func (f *TicketFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.LocationID != nil && !validator.IsValidUUID(*f.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}
	if f.CounterID != nil && !validator.IsValidUUID(*f.CounterID) {
		errs.Add("counter_id", "counter_id must be a valid UUID")
	}
	if f.Status != nil {
		upper := strings.ToUpper(*f.Status)
		f.Status = &upper
		if !Status(upper).Valid() {
			errs.Add("status", "status must be one of: WAITING, CALLING, SERVING, HOLD, DONE, CANCELLED")
		}
	}
	if f.Date != nil {
		if _, ok := validator.IsValidDate(*f.Date); !ok {
			errs.Add("date", "date must be in YYYY-MM-DD format")
		}
	}
	if f.SortBy != "" {
		valid := []string{"created_at", "sequence", "queue_number", "status", "service_date"}
		if !validator.IsInSlice(f.SortBy, valid) {
			errs.Add("sort_by", "sort_by must be one of: created_at, sequence, queue_number, status, service_date")
		}
	}
	if f.SortOrder != "" && !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
		errs.Add("sort_order", "sort_order must be asc or desc")
	}

	return errs.Err()
}

type TicketResponse struct {
	ID           string     `json:"id"`
	LocationID   string     `json:"location_id"`
	CounterID    string     `json:"counter_id"`
	CounterName  string     `json:"counter_name,omitempty"`
	UserID       *string    `json:"user_id,omitempty"`
	ServiceDate  string     `json:"service_date"`
	Sequence     int        `json:"sequence"`
	QueueNumber  string     `json:"queue_number"`
	Status       Status     `json:"status"`
	VisitorName  *string    `json:"visitor_name,omitempty"`
	VisitorPhone *string    `json:"visitor_phone,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	TrackingCode string     `json:"tracking_code"`
	CalledAt     *time.Time `json:"called_at,omitempty"`
	ServedAt     *time.Time `json:"served_at,omitempty"`
	HeldAt       *time.Time `json:"held_at,omitempty"`
	DoneAt       *time.Time `json:"done_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (t Ticket) ToResponse() TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		LocationID:   t.LocationID,
		CounterID:    t.CounterID,
		UserID:       t.UserID,
		ServiceDate:  t.ServiceDate.Format("2006-01-02"),
		Sequence:     t.Sequence,
		QueueNumber:  t.QueueNumber,
		Status:       t.Status,
		VisitorName:  t.VisitorName,
		VisitorPhone: t.VisitorPhone,
		Notes:        t.Notes,
		TrackingCode: t.TrackingCode,
		CalledAt:     t.CalledAt,
		ServedAt:     t.ServedAt,
		HeldAt:       t.HeldAt,
		DoneAt:       t.DoneAt,
		CancelledAt:  t.CancelledAt,
		CancelReason: t.CancelReason,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

type ListTicketResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Tickets    []TicketResponse `json:"tickets"`
}

type EventResponse struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	FromStatus  *Status   `json:"from_status,omitempty"`
	ToStatus    Status    `json:"to_status"`
	ActorUserID *string   `json:"actor_user_id,omitempty"`
	Note        *string   `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e Event) ToResponse() EventResponse {
	return EventResponse{
		ID:          e.ID,
		Action:      e.Action,
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		ActorUserID: e.ActorUserID,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}

// TrackResponse is what an anonymous visitor sees for their tracking code.
type TrackResponse struct {
	QueueNumber          string `json:"queue_number"`
	Status               Status `json:"status"`
	CounterID            string `json:"counter_id"`
	LocationID           string `json:"location_id"`
	ServiceDate          string `json:"service_date"`
	Ahead                int    `json:"ahead"`
	EstimatedWaitSeconds int    `json:"estimated_wait_seconds"`
}

type BoardCounter struct {
	CounterID     string  `json:"counter_id"`
	CounterName   string  `json:"counter_name"`
	Prefix        string  `json:"prefix"`
	Current       *string `json:"current,omitempty"`
	CurrentStatus *Status `json:"current_status,omitempty"`
	WaitingCount  int     `json:"waiting_count"`
	LastIssued    *string `json:"last_issued,omitempty"`
}

type BoardResponse struct {
	LocationID  string         `json:"location_id"`
	ServiceDate string         `json:"service_date"`
	Counters    []BoardCounter `json:"counters"`
}

// StreamEvent is published to a location's live stream on every ticket change.
type StreamEvent struct {
	TicketID    string `json:"ticket_id"`
	CounterID   string `json:"counter_id"`
	QueueNumber string `json:"queue_number"`
	Status      Status `json:"status"`
	Action      Action `json:"action"`
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
