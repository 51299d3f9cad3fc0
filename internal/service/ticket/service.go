package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
	"github.com/waitless/waitless-backend-go/internal/pkg/sse"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	"github.com/waitless/waitless-backend-go/internal/service/access"
)

const (
	// maxIssueAttempts bounds retries after a ticket number unique violation.
	maxIssueAttempts = 3
	// fallbackServiceSeconds is used for wait estimates before anyone is served today.
	fallbackServiceSeconds = 300
)

// Publisher fans ticket changes out to live streams keyed by location ID.
type Publisher interface {
	Publish(topic string, event sse.Event)
}

// SummaryRefresher recomputes one counter-day after a ticket change.
type SummaryRefresher interface {
	RefreshCounter(ctx context.Context, locationID, counterID string, serviceDate time.Time) error
}

type TicketServiceImpl struct {
	tx postgresql.Transactor
	ticket.TicketRepository
	sequences ticket.SequenceRepository
	events    ticket.EventRepository
	counters  counter.CounterRepository
	locations location.LocationRepository
	summaries SummaryRefresher
	publisher Publisher
	guard     *access.Guard
	now       func() time.Time
}

func NewTicketService(
	tx postgresql.Transactor,
	ticketRepository ticket.TicketRepository,
	sequenceRepository ticket.SequenceRepository,
	eventRepository ticket.EventRepository,
	counterRepository counter.CounterRepository,
	locationRepository location.LocationRepository,
	summaries SummaryRefresher,
	publisher Publisher,
) ticket.TicketService {
	return &TicketServiceImpl{
		tx:               tx,
		TicketRepository: ticketRepository,
		sequences:        sequenceRepository,
		events:           eventRepository,
		counters:         counterRepository,
		locations:        locationRepository,
		summaries:        summaries,
		publisher:        publisher,
		guard:            access.NewGuard(locationRepository),
		now:              time.Now,
	}
}

// loadCounter returns a counter with its location.
func (s *TicketServiceImpl) loadCounter(ctx context.Context, counterID string) (counter.Counter, location.Location, error) {
	c, err := s.counters.GetByID(ctx, counterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter.Counter{}, location.Location{}, counter.ErrCounterNotFound
		}
		return counter.Counter{}, location.Location{}, fmt.Errorf("failed to get counter: %w", err)
	}
	loc, err := s.locations.GetByID(ctx, c.LocationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter.Counter{}, location.Location{}, location.ErrLocationNotFound
		}
		return counter.Counter{}, location.Location{}, fmt.Errorf("failed to get location: %w", err)
	}
	return c, loc, nil
}

func (s *TicketServiceImpl) getTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	t, err := s.TicketRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticket.Ticket{}, ticket.ErrTicketNotFound
		}
		return ticket.Ticket{}, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// Issue implements ticket.TicketService.
func (s *TicketServiceImpl) Issue(ctx context.Context, req ticket.IssueTicketRequest) (ticket.TicketResponse, error) {
	// Anonymous kiosk issuance is allowed; an authenticated caller is recorded.
	var actorID, ownerID *string
	actor, err := jwt.ActorFromContext(ctx)
	authenticated := err == nil
	if authenticated {
		if !actor.Can(user.PermissionTicketCreate) {
			return ticket.TicketResponse{}, user.ErrInsufficientPermissions
		}
		actorID = &actor.UserID
		if actor.Role == user.RoleVisitor {
			ownerID = &actor.UserID
		}
	}

	c, loc, err := s.loadCounter(ctx, req.CounterID)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if authenticated && actor.Role == user.RoleStaff && !access.CanSee(actor, loc) {
		return ticket.TicketResponse{}, location.ErrLocationAccessDenied
	}
	if !c.IsActive || !loc.IsActive {
		return ticket.TicketResponse{}, ticket.ErrCounterInactive
	}

	now := s.now()
	serviceDate := loc.ServiceDate(now)
	if !c.IsOpenAt(now.In(loc.TimeLocation())) {
		return ticket.TicketResponse{}, ticket.ErrCounterClosed
	}

	var created ticket.Ticket
	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		created, err = s.issueOnce(ctx, c, serviceDate, ownerID, actorID, req)
		if err == nil || !errors.Is(err, ticket.ErrTicketNumberConflict) {
			break
		}
		if attempt < maxIssueAttempts {
			slog.Warn("Ticket number conflict, retrying", "counter_id", c.ID, "attempt", attempt, "error", err)
		} else {
			slog.Error("Ticket number conflict, giving up", "counter_id", c.ID, "attempts", attempt, "error", err)
		}
	}
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNumberConflict) {
			return ticket.TicketResponse{}, ticket.ErrTicketNumberConflict
		}
		return ticket.TicketResponse{}, err
	}

	slog.Info("ticket issued", "ticket_id", created.ID, "counter_id", c.ID, "queue_number", created.QueueNumber)
	s.afterChange(ctx, created, ticket.ActionIssue)

	resp := created.ToResponse()
	resp.CounterName = c.Name
	return resp, nil
}

// issueOnce allocates the next sequence and inserts the ticket in one
// transaction. The sequence row stays locked until commit, so a rollback
// hands the number back.
func (s *TicketServiceImpl) issueOnce(ctx context.Context, c counter.Counter, serviceDate time.Time, ownerID, actorID *string, req ticket.IssueTicketRequest) (ticket.Ticket, error) {
	var created ticket.Ticket
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		sequence, err := s.sequences.Next(txCtx, c.ID, serviceDate)
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		if !c.HasCapacity(sequence - 1) {
			return ticket.ErrCounterFull
		}

		created, err = s.TicketRepository.Create(txCtx, ticket.Ticket{
			LocationID:   c.LocationID,
			CounterID:    c.ID,
			UserID:       ownerID,
			ServiceDate:  serviceDate,
			Sequence:     sequence,
			QueueNumber:  ticket.FormatQueueNumber(c.Prefix, sequence),
			Status:       ticket.StatusWaiting,
			VisitorName:  req.VisitorName,
			VisitorPhone: req.VisitorPhone,
			Notes:        req.Notes,
			TrackingCode: uuid.NewString(),
		})
		if err != nil {
			if errors.Is(err, ticket.ErrTicketNumberConflict) {
				return err
			}
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		if _, err := s.events.Create(txCtx, ticket.Event{
			TicketID:    created.ID,
			Action:      ticket.ActionIssue,
			ToStatus:    ticket.StatusWaiting,
			ActorUserID: actorID,
		}); err != nil {
			return fmt.Errorf("failed to record ticket event: %w", err)
		}
		return nil
	})
	return created, err
}

// afterChange refreshes the summary row and notifies display screens.
// Both are best effort: the ticket change is already committed.
func (s *TicketServiceImpl) afterChange(ctx context.Context, t ticket.Ticket, action ticket.Action) {
	if s.summaries != nil {
		if err := s.summaries.RefreshCounter(ctx, t.LocationID, t.CounterID, t.ServiceDate); err != nil {
			slog.Warn("failed to refresh daily summary", "ticket_id", t.ID, "counter_id", t.CounterID, "error", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(t.LocationID, sse.Event{
			Event: action.EventName(),
			Data: ticket.StreamEvent{
				TicketID:    t.ID,
				CounterID:   t.CounterID,
				QueueNumber: t.QueueNumber,
				Status:      t.Status,
				Action:      action,
			},
		})
	}
}

// authorizeTransition returns the statuses the caller may move the ticket from.
func (s *TicketServiceImpl) authorizeTransition(ctx context.Context, actor jwt.Actor, t ticket.Ticket, action ticket.Action) ([]ticket.Status, error) {
	if actor.Can(user.PermissionTicketOperate) {
		if _, err := s.guard.Location(ctx, actor, t.LocationID); err != nil {
			if errors.Is(err, location.ErrLocationAccessDenied) {
				return nil, ticket.ErrTicketAccessDenied
			}
			return nil, err
		}
		return ticket.AllowedFrom(action), nil
	}

	// Visitors may only withdraw their own ticket before it is called.
	if action == ticket.ActionCancel && actor.Can(user.PermissionTicketCancelOwn) &&
		t.UserID != nil && *t.UserID == actor.UserID {
		return []ticket.Status{ticket.StatusWaiting}, nil
	}
	return nil, ticket.ErrTicketAccessDenied
}

// Transition implements ticket.TicketService.
func (s *TicketServiceImpl) Transition(ctx context.Context, req ticket.TransitionRequest) (ticket.TicketResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	current, err := s.getTicket(ctx, req.TicketID)
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	from, err := s.authorizeTransition(ctx, actor, current, req.Action)
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	to, err := ticket.Next(current.Status, req.Action)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if !containsStatus(from, current.Status) {
		return ticket.TicketResponse{}, fmt.Errorf("%w: cannot %s a %s ticket", ticket.ErrInvalidTransition, req.Action, current.Status)
	}

	var reason *string
	if req.Action == ticket.ActionCancel {
		reason = req.Note
	}

	var updated ticket.Ticket
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		// Calling from HOLD puts the ticket back on the counter, so the
		// one-active-ticket rule applies as for CallNext.
		if req.Action == ticket.ActionCall {
			if err := s.ensureCounterIdle(txCtx, current.CounterID, current.ServiceDate, current.ID); err != nil {
				return err
			}
		}

		// Guard on the status we read so the event's from_status is exact.
		updated, err = s.TicketRepository.Transition(txCtx, current.ID, []ticket.Status{current.Status}, to, req.Action, reason)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ticket.ErrInvalidTransition
			}
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		return s.recordEvent(txCtx, updated.ID, req.Action, current.Status, to, actor.UserID, req.Note)
	})
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	slog.Info("ticket transitioned", "ticket_id", updated.ID, "action", req.Action, "from", current.Status, "to", to, "actor_id", actor.UserID)
	s.afterChange(ctx, updated, req.Action)
	return updated.ToResponse(), nil
}

// CallNext implements ticket.TicketService.
func (s *TicketServiceImpl) CallNext(ctx context.Context, counterID string) (ticket.TicketResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if !actor.Can(user.PermissionTicketOperate) {
		return ticket.TicketResponse{}, user.ErrStaffAccessRequired
	}

	c, loc, err := s.loadCounter(ctx, counterID)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if !access.CanSee(actor, loc) {
		return ticket.TicketResponse{}, location.ErrLocationAccessDenied
	}
	serviceDate := loc.ServiceDate(s.now())

	var called ticket.Ticket
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.ensureCounterIdle(txCtx, c.ID, serviceDate, ""); err != nil {
			return err
		}

		next, err := s.TicketRepository.LockNextWaiting(txCtx, c.ID, serviceDate)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ticket.ErrQueueEmpty
			}
			return fmt.Errorf("failed to find next ticket: %w", err)
		}

		called, err = s.TicketRepository.Transition(txCtx, next.ID, []ticket.Status{ticket.StatusWaiting}, ticket.StatusCalling, ticket.ActionCall, nil)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ticket.ErrInvalidTransition
			}
			return fmt.Errorf("failed to call ticket: %w", err)
		}

		return s.recordEvent(txCtx, called.ID, ticket.ActionCall, ticket.StatusWaiting, ticket.StatusCalling, actor.UserID, nil)
	})
	if err != nil {
		return ticket.TicketResponse{}, err
	}

	slog.Info("ticket called", "ticket_id", called.ID, "counter_id", c.ID, "queue_number", called.QueueNumber)
	s.afterChange(ctx, called, ticket.ActionCall)

	resp := called.ToResponse()
	resp.CounterName = c.Name
	return resp, nil
}

// ensureCounterIdle locks the counter row and fails with ErrCounterBusy when
// another ticket is CALLING or SERVING there.
func (s *TicketServiceImpl) ensureCounterIdle(txCtx context.Context, counterID string, serviceDate time.Time, excludeID string) error {
	if _, err := s.counters.GetForUpdate(txCtx, counterID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter.ErrCounterNotFound
		}
		return fmt.Errorf("failed to lock counter: %w", err)
	}
	active, err := s.TicketRepository.CountActive(txCtx, counterID, serviceDate, excludeID)
	if err != nil {
		return fmt.Errorf("failed to count active tickets: %w", err)
	}
	if active > 0 {
		return ticket.ErrCounterBusy
	}
	return nil
}

func (s *TicketServiceImpl) recordEvent(txCtx context.Context, ticketID string, action ticket.Action, from, to ticket.Status, actorID string, note *string) error {
	_, err := s.events.Create(txCtx, ticket.Event{
		TicketID:    ticketID,
		Action:      action,
		FromStatus:  &from,
		ToStatus:    to,
		ActorUserID: &actorID,
		Note:        note,
	})
	if err != nil {
		return fmt.Errorf("failed to record ticket event: %w", err)
	}
	return nil
}

func containsStatus(list []ticket.Status, s ticket.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// canView applies the read rules: operators see tickets of their locations,
// visitors only their own.
func (s *TicketServiceImpl) canView(ctx context.Context, actor jwt.Actor, t ticket.Ticket) error {
	if actor.Can(user.PermissionTicketViewAll) {
		if _, err := s.guard.Location(ctx, actor, t.LocationID); err != nil {
			if errors.Is(err, location.ErrLocationAccessDenied) {
				return ticket.ErrTicketAccessDenied
			}
			return err
		}
		return nil
	}
	if actor.Can(user.PermissionTicketViewOwn) && t.UserID != nil && *t.UserID == actor.UserID {
		return nil
	}
	return ticket.ErrTicketAccessDenied
}

// Get implements ticket.TicketService.
func (s *TicketServiceImpl) Get(ctx context.Context, id string) (ticket.TicketResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	t, err := s.getTicket(ctx, id)
	if err != nil {
		return ticket.TicketResponse{}, err
	}
	if err := s.canView(ctx, actor, t); err != nil {
		return ticket.TicketResponse{}, err
	}
	return t.ToResponse(), nil
}

// List implements ticket.TicketService.
func (s *TicketServiceImpl) List(ctx context.Context, filter ticket.TicketFilter) (ticket.ListTicketResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return ticket.ListTicketResponse{}, err
	}
	if !actor.Can(user.PermissionTicketViewAll) {
		return ticket.ListTicketResponse{}, user.ErrInsufficientPermissions
	}

	ids, all, err := s.guard.Scope(ctx, actor)
	if err != nil {
		return ticket.ListTicketResponse{}, err
	}
	scoped, err := access.Narrow(filter.LocationID, ids, all)
	if err != nil {
		return ticket.ListTicketResponse{}, err
	}

	page := pagination.New(filter.Page, filter.Limit)
	if !all && len(scoped) == 0 {
		return emptyTicketList(page), nil
	}
	filter.LocationIDs = scoped
	filter.UserID = nil
	return s.list(ctx, filter, page)
}

// ListMine implements ticket.TicketService.
func (s *TicketServiceImpl) ListMine(ctx context.Context, filter ticket.TicketFilter) (ticket.ListTicketResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return ticket.ListTicketResponse{}, err
	}
	filter.UserID = &actor.UserID
	filter.LocationIDs = nil
	return s.list(ctx, filter, pagination.New(filter.Page, filter.Limit))
}

func (s *TicketServiceImpl) list(ctx context.Context, filter ticket.TicketFilter, page pagination.Params) (ticket.ListTicketResponse, error) {
	filter.Page, filter.Limit = page.Page, page.Limit

	tickets, total, err := s.TicketRepository.List(ctx, filter)
	if err != nil {
		return ticket.ListTicketResponse{}, fmt.Errorf("failed to list tickets: %w", err)
	}

	resp := ticket.ListTicketResponse{
		TotalCount: total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
		Tickets:    make([]ticket.TicketResponse, 0, len(tickets)),
	}
	for _, t := range tickets {
		item := t.Ticket.ToResponse()
		item.CounterName = t.CounterName
		resp.Tickets = append(resp.Tickets, item)
	}
	return resp, nil
}

func emptyTicketList(page pagination.Params) ticket.ListTicketResponse {
	return ticket.ListTicketResponse{
		Page:    page.Page,
		Limit:   page.Limit,
		Tickets: []ticket.TicketResponse{},
	}
}

// Events implements ticket.TicketService.
func (s *TicketServiceImpl) Events(ctx context.Context, ticketID string) ([]ticket.EventResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, actor, t); err != nil {
		return nil, err
	}

	events, err := s.events.ListByTicket(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket events: %w", err)
	}
	resp := make([]ticket.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, e.ToResponse())
	}
	return resp, nil
}

// Track implements ticket.TicketService.
func (s *TicketServiceImpl) Track(ctx context.Context, trackingCode string) (ticket.TrackResponse, error) {
	if !validator.IsValidUUID(trackingCode) {
		return ticket.TrackResponse{}, ticket.ErrTicketNotFound
	}
	t, err := s.TicketRepository.GetByTrackingCode(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticket.TrackResponse{}, ticket.ErrTicketNotFound
		}
		return ticket.TrackResponse{}, fmt.Errorf("failed to get ticket: %w", err)
	}

	resp := ticket.TrackResponse{
		QueueNumber: t.QueueNumber,
		Status:      t.Status,
		CounterID:   t.CounterID,
		LocationID:  t.LocationID,
		ServiceDate: t.ServiceDate.Format("2006-01-02"),
	}
	if t.Status != ticket.StatusWaiting {
		return resp, nil
	}

	ahead, err := s.TicketRepository.CountWaitingAhead(ctx, t.CounterID, t.ServiceDate, t.Sequence)
	if err != nil {
		return ticket.TrackResponse{}, fmt.Errorf("failed to count tickets ahead: %w", err)
	}
	avg, err := s.TicketRepository.AverageServiceSeconds(ctx, t.CounterID, t.ServiceDate)
	if err != nil {
		return ticket.TrackResponse{}, fmt.Errorf("failed to compute average service time: %w", err)
	}
	if avg <= 0 {
		avg = fallbackServiceSeconds
	}

	resp.Ahead = ahead
	resp.EstimatedWaitSeconds = ahead * avg
	return resp, nil
}

// Board implements ticket.TicketService.
func (s *TicketServiceImpl) Board(ctx context.Context, locationID string) (ticket.BoardResponse, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticket.BoardResponse{}, location.ErrLocationNotFound
		}
		return ticket.BoardResponse{}, fmt.Errorf("failed to get location: %w", err)
	}
	if !loc.IsActive {
		return ticket.BoardResponse{}, location.ErrLocationNotFound
	}

	serviceDate := loc.ServiceDate(s.now())
	boards, err := s.TicketRepository.Board(ctx, loc.ID, serviceDate)
	if err != nil {
		return ticket.BoardResponse{}, fmt.Errorf("failed to load board: %w", err)
	}

	resp := ticket.BoardResponse{
		LocationID:  loc.ID,
		ServiceDate: serviceDate.Format("2006-01-02"),
		Counters:    make([]ticket.BoardCounter, 0, len(boards)),
	}
	for _, b := range boards {
		resp.Counters = append(resp.Counters, ticket.BoardCounter{
			CounterID:     b.CounterID,
			CounterName:   b.CounterName,
			Prefix:        b.Prefix,
			Current:       b.Current,
			CurrentStatus: b.CurrentStatus,
			WaitingCount:  b.WaitingCount,
			LastIssued:    b.LastIssued,
		})
	}
	return resp, nil
}
