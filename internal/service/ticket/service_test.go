package ticket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/sse"
	"github.com/waitless/waitless-backend-go/internal/service/servicetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
	topics []string
}

func (p *recordingPublisher) Publish(topic string, event sse.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
}

type recordingRefresher struct {
	mu       sync.Mutex
	counters []string
}

func (r *recordingRefresher) RefreshCounter(ctx context.Context, locationID, counterID string, serviceDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, counterID)
	return nil
}

type fixture struct {
	store     *servicetest.Store
	svc       *TicketServiceImpl
	publisher *recordingPublisher
	refresher *recordingRefresher
	owner     user.User
	staff     user.User
	visitor   user.User
	location  location.Location
	counter   counter.Counter
}

// 2026-03-10 10:00 in Asia/Jakarta.
var fixedNow = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	store := servicetest.NewStore()
	store.Now = func() time.Time { return fixedNow }

	owner := store.SeedUser("owner@example.com", user.RoleOwner, nil)
	loc := store.SeedLocation(owner.ID, "main", "Asia/Jakarta")
	c := store.SeedCounter(loc.ID, "A", capacity)
	staff := store.SeedUser("staff@example.com", user.RoleStaff, &loc.ID)
	visitor := store.SeedUser("visitor@example.com", user.RoleVisitor, nil)

	publisher := &recordingPublisher{}
	refresher := &recordingRefresher{}
	svc := NewTicketService(
		servicetest.Tx{},
		servicetest.Tickets{Store: store},
		servicetest.Sequences{Store: store},
		servicetest.Events{Store: store},
		servicetest.Counters{Store: store},
		servicetest.Locations{Store: store},
		refresher,
		publisher,
	).(*TicketServiceImpl)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		store: store, svc: svc, publisher: publisher, refresher: refresher,
		owner: owner, staff: staff, visitor: visitor, location: loc, counter: c,
	}
}

func (f *fixture) as(u user.User) context.Context {
	return servicetest.Actor(context.Background(), u)
}

func (f *fixture) issue(t *testing.T, ctx context.Context) ticket.TicketResponse {
	t.Helper()
	resp, err := f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: f.counter.ID})
	require.NoError(t, err)
	return resp
}

func TestIssue_SequencesPerCounterAndDay(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first := f.issue(t, ctx)
	second := f.issue(t, ctx)

	assert.Equal(t, "A-001", first.QueueNumber)
	assert.Equal(t, "A-002", second.QueueNumber)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, ticket.StatusWaiting, first.Status)
	assert.Equal(t, "2026-03-10", first.ServiceDate)
	assert.NotEmpty(t, first.TrackingCode)
	assert.NotEqual(t, first.TrackingCode, second.TrackingCode)
	assert.Nil(t, first.UserID, "anonymous tickets have no owner")

	// a new local day restarts numbering
	f.svc.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }
	nextDay := f.issue(t, ctx)
	assert.Equal(t, "A-001", nextDay.QueueNumber)
	assert.Equal(t, "2026-03-11", nextDay.ServiceDate)
}

func TestIssue_RecordsEventRefreshesSummaryAndPublishes(t *testing.T) {
	f := newFixture(t, 0)

	resp := f.issue(t, f.as(f.visitor))
	require.NotNil(t, resp.UserID)
	assert.Equal(t, f.visitor.ID, *resp.UserID)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ticket.ActionIssue, events[0].Action)
	assert.Nil(t, events[0].FromStatus)
	assert.Equal(t, ticket.StatusWaiting, events[0].ToStatus)
	require.NotNil(t, events[0].ActorUserID)
	assert.Equal(t, f.visitor.ID, *events[0].ActorUserID)

	assert.Equal(t, []string{f.counter.ID}, f.refresher.counters)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, f.location.ID, f.publisher.topics[0])
	assert.Equal(t, "ticket.issued", f.publisher.events[0].Event)
}

// conflictingTickets fails the first `failures` creates with a number
// conflict, or every create when failures is negative.
type conflictingTickets struct {
	ticket.TicketRepository
	mu        sync.Mutex
	failures  int
	sequences []int
}

func (c *conflictingTickets) Create(ctx context.Context, newTicket ticket.Ticket) (ticket.Ticket, error) {
	c.mu.Lock()
	c.sequences = append(c.sequences, newTicket.Sequence)
	fail := c.failures < 0 || len(c.sequences) <= c.failures
	c.mu.Unlock()
	if fail {
		return ticket.Ticket{}, ticket.ErrTicketNumberConflict
	}
	return c.TicketRepository.Create(ctx, newTicket)
}

func TestIssue_GivesUpAfterRepeatedNumberConflicts(t *testing.T) {
	f := newFixture(t, 0)
	tickets := &conflictingTickets{TicketRepository: servicetest.Tickets{Store: f.store}, failures: -1}
	f.svc.TicketRepository = tickets

	_, err := f.svc.Issue(context.Background(), ticket.IssueTicketRequest{CounterID: f.counter.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ticket.ErrTicketNumberConflict))

	assert.Len(t, tickets.sequences, maxIssueAttempts)
	assert.Empty(t, f.store.Events())
	assert.Empty(t, f.publisher.events)
	assert.Empty(t, f.refresher.counters)
}

func TestIssue_RetriesTransientNumberConflict(t *testing.T) {
	f := newFixture(t, 0)
	tickets := &conflictingTickets{TicketRepository: servicetest.Tickets{Store: f.store}, failures: 1}
	f.svc.TicketRepository = tickets

	resp := f.issue(t, context.Background())
	assert.Len(t, tickets.sequences, 2)
	assert.Equal(t, tickets.sequences[1], resp.Sequence)
	assert.Len(t, f.store.Events(), 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestIssue_SkipsNumbersAlreadyTaken(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	// A ticket stored without advancing the counter's sequence.
	_, err := servicetest.Tickets{Store: f.store}.Create(ctx, ticket.Ticket{
		LocationID:  f.location.ID,
		CounterID:   f.counter.ID,
		ServiceDate: f.location.ServiceDate(fixedNow),
		Sequence:    1,
		QueueNumber: ticket.FormatQueueNumber("A", 1),
		Status:      ticket.StatusWaiting,
	})
	require.NoError(t, err)

	resp := f.issue(t, ctx)
	assert.Equal(t, "A-002", resp.QueueNumber)
}

func TestIssue_Capacity(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	f.issue(t, ctx)
	f.issue(t, ctx)

	_, err := f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: f.counter.ID})
	assert.ErrorIs(t, err, ticket.ErrCounterFull)
}

func TestIssue_InactiveAndClosedCounters(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive counter", func(t *testing.T) {
		f := newFixture(t, 0)
		inactive := false
		_, err := servicetest.Counters{Store: f.store}.Update(ctx, f.counter.ID, counter.UpdateCounterRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, err = f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: f.counter.ID})
		assert.ErrorIs(t, err, ticket.ErrCounterInactive)
	})

	t.Run("outside operating hours", func(t *testing.T) {
		f := newFixture(t, 0)
		// 10:00 local; window 13:00-17:00
		open, closeAt := "13:00", "17:00"
		_, err := servicetest.Counters{Store: f.store}.Update(ctx, f.counter.ID, counter.UpdateCounterRequest{OpenTime: &open, CloseTime: &closeAt})
		require.NoError(t, err)

		_, err = f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: f.counter.ID})
		assert.ErrorIs(t, err, ticket.ErrCounterClosed)
	})

	t.Run("unknown counter", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: "00000000-0000-0000-0000-000000000000"})
		assert.ErrorIs(t, err, counter.ErrCounterNotFound)
	})
}

func TestIssue_StaffOfOtherLocationDenied(t *testing.T) {
	f := newFixture(t, 0)
	other := f.store.SeedLocation(f.owner.ID, "other", "UTC")
	outsider := f.store.SeedUser("outsider@example.com", user.RoleStaff, &other.ID)

	_, err := f.svc.Issue(f.as(outsider), ticket.IssueTicketRequest{CounterID: f.counter.ID})
	assert.ErrorIs(t, err, location.ErrLocationAccessDenied)
}

func TestIssue_ConcurrentIssuersGetDistinctNumbers(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Issue(ctx, ticket.IssueTicketRequest{CounterID: f.counter.ID})
			if assert.NoError(t, err) {
				numbers <- resp.QueueNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["A-001"])
	assert.True(t, seen["A-020"])
}

func TestTransition_FullLifecycle(t *testing.T) {
	f := newFixture(t, 0)
	issued := f.issue(t, context.Background())
	staffCtx := f.as(f.staff)

	steps := []struct {
		action ticket.Action
		want   ticket.Status
	}{
		{ticket.ActionCall, ticket.StatusCalling},
		{ticket.ActionRecall, ticket.StatusCalling},
		{ticket.ActionServe, ticket.StatusServing},
		{ticket.ActionHold, ticket.StatusHold},
		{ticket.ActionCall, ticket.StatusCalling},
		{ticket.ActionServe, ticket.StatusServing},
		{ticket.ActionDone, ticket.StatusDone},
	}
	for _, step := range steps {
		resp, err := f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: issued.ID, Action: step.action})
		require.NoError(t, err, "action %s", step.action)
		assert.Equal(t, step.want, resp.Status)
	}

	stored := f.store.Ticket(issued.ID)
	assert.NotNil(t, stored.CalledAt)
	assert.NotNil(t, stored.ServedAt)
	assert.NotNil(t, stored.HeldAt)
	assert.NotNil(t, stored.DoneAt)

	// DONE is terminal
	_, err := f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: issued.ID, Action: ticket.ActionCancel})
	assert.ErrorIs(t, err, ticket.ErrInvalidTransition)

	events, err := f.svc.Events(staffCtx, issued.ID)
	require.NoError(t, err)
	require.Len(t, events, len(steps)+1)
	assert.Equal(t, ticket.ActionIssue, events[0].Action)
	last := events[len(events)-1]
	assert.Equal(t, ticket.ActionDone, last.Action)
	require.NotNil(t, last.FromStatus)
	assert.Equal(t, ticket.StatusServing, *last.FromStatus)
	require.NotNil(t, last.ActorUserID)
	assert.Equal(t, f.staff.ID, *last.ActorUserID)
}

func TestTransition_InvalidFromWaiting(t *testing.T) {
	f := newFixture(t, 0)
	issued := f.issue(t, context.Background())

	for _, action := range []ticket.Action{ticket.ActionServe, ticket.ActionDone, ticket.ActionHold, ticket.ActionRecall} {
		_, err := f.svc.Transition(f.as(f.owner), ticket.TransitionRequest{TicketID: issued.ID, Action: action})
		assert.ErrorIs(t, err, ticket.ErrInvalidTransition, "action %s", action)
	}
	assert.Equal(t, ticket.StatusWaiting, f.store.Ticket(issued.ID).Status)
}

func TestTransition_CallFromHoldRespectsBusyCounter(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	staffCtx := f.as(f.staff)
	first := f.issue(t, ctx)
	f.issue(t, ctx)

	_, err := f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: first.ID, Action: ticket.ActionCall})
	require.NoError(t, err)
	_, err = f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: first.ID, Action: ticket.ActionHold})
	require.NoError(t, err)

	second, err := f.svc.CallNext(staffCtx, f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, "A-002", second.QueueNumber)

	_, err = f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: first.ID, Action: ticket.ActionCall})
	assert.ErrorIs(t, err, ticket.ErrCounterBusy)
}

func TestTransition_CancelStoresReason(t *testing.T) {
	f := newFixture(t, 0)
	issued := f.issue(t, context.Background())
	reason := "left the building"

	resp, err := f.svc.Transition(f.as(f.staff), ticket.TransitionRequest{TicketID: issued.ID, Action: ticket.ActionCancel, Note: &reason})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCancelled, resp.Status)
	require.NotNil(t, resp.CancelReason)
	assert.Equal(t, reason, *resp.CancelReason)
	assert.NotNil(t, resp.CancelledAt)
}

func TestTransition_VisitorPermissions(t *testing.T) {
	f := newFixture(t, 0)
	visitorCtx := f.as(f.visitor)

	t.Run("cannot operate", func(t *testing.T) {
		own := f.issue(t, visitorCtx)
		_, err := f.svc.Transition(visitorCtx, ticket.TransitionRequest{TicketID: own.ID, Action: ticket.ActionCall})
		assert.ErrorIs(t, err, ticket.ErrTicketAccessDenied)
	})

	t.Run("cancels own waiting ticket", func(t *testing.T) {
		own := f.issue(t, visitorCtx)
		resp, err := f.svc.Transition(visitorCtx, ticket.TransitionRequest{TicketID: own.ID, Action: ticket.ActionCancel})
		require.NoError(t, err)
		assert.Equal(t, ticket.StatusCancelled, resp.Status)
	})

	t.Run("cannot cancel once called", func(t *testing.T) {
		own := f.issue(t, visitorCtx)
		_, err := f.svc.Transition(f.as(f.staff), ticket.TransitionRequest{TicketID: own.ID, Action: ticket.ActionCall})
		require.NoError(t, err)

		_, err = f.svc.Transition(visitorCtx, ticket.TransitionRequest{TicketID: own.ID, Action: ticket.ActionCancel})
		assert.ErrorIs(t, err, ticket.ErrInvalidTransition)
	})

	t.Run("cannot cancel someone else's ticket", func(t *testing.T) {
		other := f.issue(t, context.Background())
		_, err := f.svc.Transition(visitorCtx, ticket.TransitionRequest{TicketID: other.ID, Action: ticket.ActionCancel})
		assert.ErrorIs(t, err, ticket.ErrTicketAccessDenied)
	})

	t.Run("anonymous", func(t *testing.T) {
		other := f.issue(t, context.Background())
		_, err := f.svc.Transition(context.Background(), ticket.TransitionRequest{TicketID: other.ID, Action: ticket.ActionCancel})
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestTransition_OtherOwnerDenied(t *testing.T) {
	f := newFixture(t, 0)
	issued := f.issue(t, context.Background())
	stranger := f.store.SeedUser("stranger@example.com", user.RoleOwner, nil)

	_, err := f.svc.Transition(f.as(stranger), ticket.TransitionRequest{TicketID: issued.ID, Action: ticket.ActionCall})
	assert.ErrorIs(t, err, ticket.ErrTicketAccessDenied)
}

func TestCallNext(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	staffCtx := f.as(f.staff)

	_, err := f.svc.CallNext(staffCtx, f.counter.ID)
	assert.ErrorIs(t, err, ticket.ErrQueueEmpty)

	first := f.issue(t, ctx)
	second := f.issue(t, ctx)

	called, err := f.svc.CallNext(staffCtx, f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, called.ID)
	assert.Equal(t, ticket.StatusCalling, called.Status)
	assert.Equal(t, f.counter.Name, called.CounterName)

	_, err = f.svc.CallNext(staffCtx, f.counter.ID)
	assert.ErrorIs(t, err, ticket.ErrCounterBusy)

	_, err = f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: first.ID, Action: ticket.ActionServe})
	require.NoError(t, err)
	_, err = f.svc.Transition(staffCtx, ticket.TransitionRequest{TicketID: first.ID, Action: ticket.ActionDone})
	require.NoError(t, err)

	called, err = f.svc.CallNext(staffCtx, f.counter.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, called.ID)

	assert.Equal(t, "ticket.called", f.publisher.events[len(f.publisher.events)-1].Event)
}

func TestCallNext_Permissions(t *testing.T) {
	f := newFixture(t, 0)
	f.issue(t, context.Background())

	_, err := f.svc.CallNext(f.as(f.visitor), f.counter.ID)
	assert.ErrorIs(t, err, user.ErrStaffAccessRequired)

	other := f.store.SeedLocation(f.owner.ID, "branch", "UTC")
	outsider := f.store.SeedUser("outsider@example.com", user.RoleStaff, &other.ID)
	_, err = f.svc.CallNext(f.as(outsider), f.counter.ID)
	assert.ErrorIs(t, err, location.ErrLocationAccessDenied)
}

func TestTrack(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	first := f.issue(t, ctx)
	f.issue(t, ctx)
	third := f.issue(t, ctx)

	resp, err := f.svc.Track(ctx, third.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, "A-003", resp.QueueNumber)
	assert.Equal(t, 2, resp.Ahead)
	assert.Equal(t, 2*fallbackServiceSeconds, resp.EstimatedWaitSeconds)

	_, err = f.svc.CallNext(f.as(f.staff), f.counter.ID)
	require.NoError(t, err)

	resp, err = f.svc.Track(ctx, first.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCalling, resp.Status)
	assert.Zero(t, resp.Ahead)

	_, err = f.svc.Track(ctx, "not-a-code")
	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
	_, err = f.svc.Track(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
}

func TestGetAndList_Scoping(t *testing.T) {
	f := newFixture(t, 0)
	mine := f.issue(t, f.as(f.visitor))
	anon := f.issue(t, context.Background())

	_, err := f.svc.Get(f.as(f.visitor), mine.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(f.as(f.visitor), anon.ID)
	assert.ErrorIs(t, err, ticket.ErrTicketAccessDenied)
	_, err = f.svc.Get(f.as(f.staff), anon.ID)
	assert.NoError(t, err)

	mineList, err := f.svc.ListMine(f.as(f.visitor), ticket.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, mineList.Tickets, 1)
	assert.Equal(t, mine.ID, mineList.Tickets[0].ID)

	_, err = f.svc.List(f.as(f.visitor), ticket.TicketFilter{})
	assert.ErrorIs(t, err, user.ErrInsufficientPermissions)

	all, err := f.svc.List(f.as(f.owner), ticket.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.Limit)
	assert.Equal(t, "Counter A", all.Tickets[0].CounterName)

	stranger := f.store.SeedUser("stranger@example.com", user.RoleOwner, nil)
	none, err := f.svc.List(f.as(stranger), ticket.TicketFilter{})
	require.NoError(t, err)
	assert.Zero(t, none.TotalCount)
	assert.Empty(t, none.Tickets)

	_, err = f.svc.List(f.as(stranger), ticket.TicketFilter{LocationID: &f.location.ID})
	assert.ErrorIs(t, err, location.ErrLocationAccessDenied)
}

func TestBoard(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.issue(t, ctx)
	f.issue(t, ctx)
	_, err := f.svc.CallNext(f.as(f.staff), f.counter.ID)
	require.NoError(t, err)

	board, err := f.svc.Board(ctx, f.location.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", board.ServiceDate)
	require.Len(t, board.Counters, 1)
	c := board.Counters[0]
	require.NotNil(t, c.Current)
	assert.Equal(t, "A-001", *c.Current)
	assert.Equal(t, 1, c.WaitingCount)
	require.NotNil(t, c.LastIssued)
	assert.Equal(t, "A-002", *c.LastIssued)

	_, err = f.svc.Board(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, location.ErrLocationNotFound)
}
