// Package servicetest provides in-memory repositories for service tests.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
)

// Tx runs fn directly; the in-memory store has no rollback.
type Tx struct{}

func (Tx) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// Store backs every fake repository in this package.
type Store struct {
	mu         sync.Mutex
	users      map[string]user.User
	locations  map[string]location.Location
	counters   map[string]counter.Counter
	tickets    map[string]ticket.Ticket
	events     []ticket.Event
	sequences  map[string]int
	recomputed []summary.Scope
	Now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     map[string]user.User{},
		locations: map[string]location.Location{},
		counters:  map[string]counter.Counter{},
		tickets:   map[string]ticket.Ticket{},
		sequences: map[string]int{},
		Now:       time.Now,
	}
}

// Actor returns a context authenticated as u.
func Actor(ctx context.Context, u user.User) context.Context {
	return jwt.WithActor(ctx, jwt.Actor{UserID: u.ID, Email: u.Email, Role: u.Role, LocationID: u.LocationID})
}

// SeedUser stores a user with the given role.
func (s *Store) SeedUser(email string, role user.Role, locationID *string) user.User {
	u, _ := Users{s}.Create(context.Background(), user.User{Email: email, FullName: email, Role: role, LocationID: locationID})
	return u
}

// SeedLocation stores an active location owned by ownerID.
func (s *Store) SeedLocation(ownerID, slug, timezone string) location.Location {
	l, _ := Locations{s}.Create(context.Background(), location.Location{
		OwnerID: ownerID, Name: slug, Slug: slug, Timezone: timezone, IsActive: true,
	})
	return l
}

// SeedCounter stores an active, always-open counter.
func (s *Store) SeedCounter(locationID, prefix string, capacity int) counter.Counter {
	c, _ := Counters{s}.Create(context.Background(), counter.Counter{
		LocationID: locationID, Name: "Counter " + prefix, Prefix: prefix, CapacityPerDay: capacity, IsActive: true,
	})
	return c
}

// Ticket returns the stored ticket by id.
func (s *Store) Ticket(id string) ticket.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id]
}

// Events returns every recorded ticket event.
func (s *Store) Events() []ticket.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ticket.Event(nil), s.events...)
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ==========================================
// USERS
// ==========================================

type Users struct{ *Store }

func (f Users) GetByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, pgx.ErrNoRows
}

func (f Users) GetByID(ctx context.Context, id string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f Users) Create(ctx context.Context, newUser user.User) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == newUser.Email {
			return user.User{}, user.ErrUserEmailExists
		}
	}
	newUser.ID = uuid.NewString()
	newUser.CreatedAt = f.Now()
	newUser.UpdatedAt = newUser.CreatedAt
	f.users[newUser.ID] = newUser
	return newUser, nil
}

func (f Users) LinkGoogleAccount(ctx context.Context, googleID string, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email {
			provider := "google"
			u.OAuthProvider = &provider
			u.OAuthProviderID = &googleID
			f.users[id] = u
			return u, nil
		}
	}
	return user.User{}, pgx.ErrNoRows
}

func (f Users) ListByLocation(ctx context.Context, locationID string) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.users {
		if u.Role == user.RoleStaff && u.LocationID != nil && *u.LocationID == locationID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// ==========================================
// LOCATIONS
// ==========================================

type Locations struct{ *Store }

func (f Locations) Create(ctx context.Context, newLocation location.Location) (location.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.locations {
		if l.Slug == newLocation.Slug {
			return location.Location{}, location.ErrLocationSlugExists
		}
	}
	newLocation.ID = uuid.NewString()
	newLocation.CreatedAt = f.Now()
	newLocation.UpdatedAt = newLocation.CreatedAt
	f.locations[newLocation.ID] = newLocation
	return newLocation, nil
}

func (f Locations) GetByID(ctx context.Context, id string) (location.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok {
		return location.Location{}, pgx.ErrNoRows
	}
	return l, nil
}

func (f Locations) GetBySlug(ctx context.Context, slug string) (location.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.locations {
		if l.Slug == slug {
			return l, nil
		}
	}
	return location.Location{}, pgx.ErrNoRows
}

func (f Locations) List(ctx context.Context, filter location.LocationFilter) ([]location.Location, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []location.Location
	for _, l := range f.locations {
		if filter.OwnerID != nil && l.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.IDs != nil && !contains(filter.IDs, l.ID) {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(*filter.Search)) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (f Locations) Update(ctx context.Context, id string, req location.UpdateLocationRequest) (location.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok {
		return location.Location{}, pgx.ErrNoRows
	}
	if req.Name != nil {
		l.Name = *req.Name
	}
	if req.Address != nil {
		l.Address = req.Address
	}
	if req.Timezone != nil {
		l.Timezone = *req.Timezone
	}
	if req.IsActive != nil {
		l.IsActive = *req.IsActive
	}
	l.UpdatedAt = f.Now()
	f.locations[id] = l
	return l, nil
}

func (f Locations) Deactivate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	l.IsActive = false
	f.locations[id] = l
	return nil
}

func (f Locations) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.locations[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.locations, id)
	for cid, c := range f.counters {
		if c.LocationID == id {
			delete(f.counters, cid)
		}
	}
	return nil
}

func (f Locations) HasTickets(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.LocationID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f Locations) ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for _, l := range f.locations {
		if l.OwnerID == ownerID {
			ids = append(ids, l.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Location returns the stored location, or false when it was deleted.
func (s *Store) Location(id string) (location.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	return l, ok
}

// ==========================================
// COUNTERS
// ==========================================

type Counters struct{ *Store }

func (f Counters) Create(ctx context.Context, newCounter counter.Counter) (counter.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.counters {
		if c.LocationID == newCounter.LocationID && c.Prefix == newCounter.Prefix {
			return counter.Counter{}, counter.ErrCounterPrefixExists
		}
	}
	newCounter.ID = uuid.NewString()
	newCounter.CreatedAt = f.Now()
	newCounter.UpdatedAt = newCounter.CreatedAt
	f.counters[newCounter.ID] = newCounter
	return newCounter, nil
}

func (f Counters) GetByID(ctx context.Context, id string) (counter.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counters[id]
	if !ok {
		return counter.Counter{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f Counters) GetForUpdate(ctx context.Context, id string) (counter.Counter, error) {
	return f.GetByID(ctx, id)
}

func (f Counters) ListByLocation(ctx context.Context, locationID string, activeOnly bool) ([]counter.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []counter.Counter
	for _, c := range f.counters {
		if c.LocationID != locationID || (activeOnly && !c.IsActive) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out, nil
}

func (f Counters) Update(ctx context.Context, id string, req counter.UpdateCounterRequest) (counter.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.counters[id]
	if !ok {
		return counter.Counter{}, pgx.ErrNoRows
	}
	if req.Prefix != nil {
		for _, other := range f.counters {
			if other.ID != id && other.LocationID == c.LocationID && other.Prefix == *req.Prefix {
				return counter.Counter{}, counter.ErrCounterPrefixExists
			}
		}
		c.Prefix = *req.Prefix
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.CapacityPerDay != nil {
		c.CapacityPerDay = *req.CapacityPerDay
	}
	if req.ClearHours {
		c.OpenTime, c.CloseTime = nil, nil
	} else if req.OpenTime != nil {
		c.OpenTime, c.CloseTime = req.OpenTime, req.CloseTime
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedAt = f.Now()
	f.counters[id] = c
	return c, nil
}

func (f Counters) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.counters[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.counters, id)
	return nil
}

func (f Counters) HasTickets(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.CounterID == id {
			return true, nil
		}
	}
	return false, nil
}

// ==========================================
// TICKETS
// ==========================================

type Tickets struct{ *Store }

func (f Tickets) Create(ctx context.Context, newTicket ticket.Ticket) (ticket.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.CounterID == newTicket.CounterID && sameDay(t.ServiceDate, newTicket.ServiceDate) &&
			(t.Sequence == newTicket.Sequence || t.QueueNumber == newTicket.QueueNumber) {
			return ticket.Ticket{}, ticket.ErrTicketNumberConflict
		}
	}
	newTicket.ID = uuid.NewString()
	newTicket.CreatedAt = f.Now()
	newTicket.UpdatedAt = newTicket.CreatedAt
	f.tickets[newTicket.ID] = newTicket
	return newTicket, nil
}

func (f Tickets) GetByID(ctx context.Context, id string) (ticket.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return ticket.Ticket{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f Tickets) GetByTrackingCode(ctx context.Context, code string) (ticket.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.TrackingCode == code {
			return t, nil
		}
	}
	return ticket.Ticket{}, pgx.ErrNoRows
}

func (f Tickets) List(ctx context.Context, filter ticket.TicketFilter) ([]ticket.TicketWithCounter, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ticket.TicketWithCounter
	for _, t := range f.tickets {
		if filter.LocationIDs != nil && !contains(filter.LocationIDs, t.LocationID) {
			continue
		}
		if filter.LocationID != nil && t.LocationID != *filter.LocationID {
			continue
		}
		if filter.CounterID != nil && t.CounterID != *filter.CounterID {
			continue
		}
		if filter.UserID != nil && (t.UserID == nil || *t.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != nil && string(t.Status) != *filter.Status {
			continue
		}
		c := f.counters[t.CounterID]
		out = append(out, ticket.TicketWithCounter{Ticket: t, CounterName: c.Name, CounterPrefix: c.Prefix})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (f Tickets) Transition(ctx context.Context, id string, from []ticket.Status, to ticket.Status, action ticket.Action, reason *string) (ticket.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok || !containsStatus(from, t.Status) {
		return ticket.Ticket{}, pgx.ErrNoRows
	}
	now := f.Now()
	switch action {
	case ticket.ActionCall, ticket.ActionRecall:
		if t.CalledAt == nil {
			t.CalledAt = &now
		}
	case ticket.ActionServe:
		t.ServedAt = &now
	case ticket.ActionHold:
		t.HeldAt = &now
	case ticket.ActionDone:
		t.DoneAt = &now
	case ticket.ActionCancel:
		t.CancelledAt = &now
		t.CancelReason = reason
	}
	t.Status = to
	t.UpdatedAt = now
	f.tickets[id] = t
	return t, nil
}

func (f Tickets) LockNextWaiting(ctx context.Context, counterID string, serviceDate time.Time) (ticket.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *ticket.Ticket
	for _, t := range f.tickets {
		if t.CounterID != counterID || !sameDay(t.ServiceDate, serviceDate) || t.Status != ticket.StatusWaiting {
			continue
		}
		if next == nil || t.Sequence < next.Sequence {
			tt := t
			next = &tt
		}
	}
	if next == nil {
		return ticket.Ticket{}, pgx.ErrNoRows
	}
	return *next, nil
}

func (f Tickets) CountActive(ctx context.Context, counterID string, serviceDate time.Time, excludeID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.CounterID == counterID && sameDay(t.ServiceDate, serviceDate) && t.ID != excludeID &&
			(t.Status == ticket.StatusCalling || t.Status == ticket.StatusServing) {
			n++
		}
	}
	return n, nil
}

func (f Tickets) CountWaitingAhead(ctx context.Context, counterID string, serviceDate time.Time, sequence int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.CounterID == counterID && sameDay(t.ServiceDate, serviceDate) &&
			t.Status == ticket.StatusWaiting && t.Sequence < sequence {
			n++
		}
	}
	return n, nil
}

func (f Tickets) AverageServiceSeconds(ctx context.Context, counterID string, serviceDate time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	n := 0
	for _, t := range f.tickets {
		if t.CounterID == counterID && sameDay(t.ServiceDate, serviceDate) &&
			t.Status == ticket.StatusDone && t.ServedAt != nil && t.DoneAt != nil {
			total += t.DoneAt.Sub(*t.ServedAt)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return int(total.Seconds()) / n, nil
}

func (f Tickets) Board(ctx context.Context, locationID string, serviceDate time.Time) ([]ticket.CounterBoard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var boards []ticket.CounterBoard
	for _, c := range f.counters {
		if c.LocationID != locationID || !c.IsActive {
			continue
		}
		b := ticket.CounterBoard{CounterID: c.ID, CounterName: c.Name, Prefix: c.Prefix}
		lastSeq := 0
		for _, t := range f.tickets {
			if t.CounterID != c.ID || !sameDay(t.ServiceDate, serviceDate) {
				continue
			}
			switch t.Status {
			case ticket.StatusWaiting:
				b.WaitingCount++
			case ticket.StatusCalling, ticket.StatusServing:
				number, status := t.QueueNumber, t.Status
				b.Current, b.CurrentStatus = &number, &status
			}
			if t.Sequence > lastSeq {
				lastSeq = t.Sequence
				number := t.QueueNumber
				b.LastIssued = &number
			}
		}
		boards = append(boards, b)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].Prefix < boards[j].Prefix })
	return boards, nil
}

// ==========================================
// SEQUENCES & EVENTS
// ==========================================

type Sequences struct{ *Store }

func (f Sequences) Next(ctx context.Context, counterID string, serviceDate time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := counterID + "|" + serviceDate.Format("2006-01-02")
	next := f.sequences[key]
	for _, t := range f.tickets {
		if t.CounterID == counterID && sameDay(t.ServiceDate, serviceDate) && t.Sequence > next {
			next = t.Sequence
		}
	}
	f.sequences[key] = next + 1
	return f.sequences[key], nil
}

type Events struct{ *Store }

func (f Events) Create(ctx context.Context, event ticket.Event) (ticket.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = uuid.NewString()
	event.CreatedAt = f.Now()
	f.events = append(f.events, event)
	return event, nil
}

func (f Events) ListByTicket(ctx context.Context, ticketID string) ([]ticket.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ticket.Event
	for _, e := range f.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ==========================================
// SUMMARIES
// ==========================================

type Summaries struct{ *Store }

// Recompute records the scope and reports one row per matching counter.
func (f Summaries) Recompute(ctx context.Context, scope summary.Scope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recomputed = append(f.recomputed, scope)
	var n int64
	for _, c := range f.counters {
		if scope.LocationID != nil && c.LocationID != *scope.LocationID {
			continue
		}
		if scope.CounterID != nil && c.ID != *scope.CounterID {
			continue
		}
		n++
	}
	return n, nil
}

func (f Summaries) List(ctx context.Context, filter summary.SummaryFilter) ([]summary.DailySummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []summary.DailySummary
	for _, c := range f.counters {
		if filter.LocationIDs != nil && !contains(filter.LocationIDs, c.LocationID) {
			continue
		}
		if filter.LocationID != nil && c.LocationID != *filter.LocationID {
			continue
		}
		if filter.CounterID != nil && c.ID != *filter.CounterID {
			continue
		}
		out = append(out, summary.DailySummary{LocationID: c.LocationID, CounterID: c.ID, CounterName: c.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CounterName < out[j].CounterName })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

// RecomputedScopes returns a copy of every scope passed to Recompute.
func (s *Store) RecomputedScopes() []summary.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]summary.Scope(nil), s.recomputed...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(list []ticket.Status, s ticket.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
