package postgresql_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
)

var serviceDate = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func TestSequence_ConcurrentIssuersGetGaplessNumbers(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	seqRepo := postgresql.NewSequenceRepository(db)

	const workers = 20
	var (
		mu   sync.Mutex
		got  []int
		wg   sync.WaitGroup
		errs = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := postgresql.WithTransaction(context.Background(), db, func(txCtx context.Context) error {
				n, err := seqRepo.Next(txCtx, f.CounterID, serviceDate)
				if err != nil {
					return err
				}
				// Every third issuer aborts; its number must be reused.
				if i%3 == 0 {
					return errors.New("abort")
				}
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
				return nil
			})
			if err != nil && err.Error() != "abort" {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sort.Ints(got)
	for i, n := range got {
		assert.Equal(t, i+1, n)
	}
}

func TestSequence_NeverFallsBehindStoredTickets(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	ctx := context.Background()
	seqRepo := postgresql.NewSequenceRepository(db)
	tickets := postgresql.NewTicketRepository(db)

	// Tickets written without going through the counter.
	for i := 1; i <= 2; i++ {
		_, err := tickets.Create(ctx, ticket.Ticket{
			LocationID: f.LocationID, CounterID: f.CounterID, ServiceDate: serviceDate,
			Sequence: i, QueueNumber: ticket.FormatQueueNumber("A", i), Status: ticket.StatusWaiting,
			TrackingCode: uuid.NewString(),
		})
		require.NoError(t, err)
	}

	n, err := seqRepo.Next(ctx, f.CounterID, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A counter row that went backwards resumes after the highest ticket.
	_, err = db.Exec(ctx, `UPDATE counter_sequences SET last_sequence = 1 WHERE counter_id = $1`, f.CounterID)
	require.NoError(t, err)
	n, err = seqRepo.Next(ctx, f.CounterID, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = seqRepo.Next(ctx, f.CounterID, serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestTicket_ListSearchMatchesWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	ctx := context.Background()
	repo := postgresql.NewTicketRepository(db)

	for i, name := range []string{"100% Club", "1000 Club", "a_b", "axb"} {
		visitor := name
		_, err := repo.Create(ctx, ticket.Ticket{
			LocationID: f.LocationID, CounterID: f.CounterID, ServiceDate: serviceDate,
			Sequence: i + 1, QueueNumber: ticket.FormatQueueNumber("A", i+1), Status: ticket.StatusWaiting,
			VisitorName: &visitor, TrackingCode: uuid.NewString(),
		})
		require.NoError(t, err)
	}

	search := func(term string) []string {
		list, _, err := repo.List(ctx, ticket.TicketFilter{Search: &term, Page: 1, Limit: 10, SortBy: "sequence", SortOrder: "asc"})
		require.NoError(t, err)
		names := make([]string, 0, len(list))
		for _, item := range list {
			names = append(names, *item.VisitorName)
		}
		return names
	}

	assert.Equal(t, []string{"100% Club"}, search("100%"))
	assert.Equal(t, []string{"a_b"}, search("a_b"))
	assert.Len(t, search("club"), 2)
}

func TestTicket_ListHugePage(t *testing.T) {
	db := newTestDB(t)
	seedFixture(t, db)
	repo := postgresql.NewTicketRepository(db)

	list, total, err := repo.List(context.Background(), ticket.TicketFilter{Page: 1 << 62, Limit: 100})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestTicket_TransitionGuard(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	ctx := context.Background()
	repo := postgresql.NewTicketRepository(db)

	created, err := repo.Create(ctx, ticket.Ticket{
		LocationID:   f.LocationID,
		CounterID:    f.CounterID,
		ServiceDate:  serviceDate,
		Sequence:     1,
		QueueNumber:  ticket.FormatQueueNumber("A", 1),
		Status:       ticket.StatusWaiting,
		TrackingCode: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, "A-001", created.QueueNumber)
	assert.True(t, created.ServiceDate.Equal(serviceDate))

	called, err := repo.Transition(ctx, created.ID, ticket.AllowedFrom(ticket.ActionCall), ticket.StatusCalling, ticket.ActionCall, nil)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCalling, called.Status)
	require.NotNil(t, called.CalledAt)

	// A second call loses: the guard no longer matches.
	_, err = repo.Transition(ctx, created.ID, ticket.AllowedFrom(ticket.ActionCall), ticket.StatusCalling, ticket.ActionCall, nil)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	reason := "left"
	cancelled, err := repo.Transition(ctx, created.ID, ticket.AllowedFrom(ticket.ActionCancel), ticket.StatusCancelled, ticket.ActionCancel, &reason)
	require.NoError(t, err)
	assert.Equal(t, "left", *cancelled.CancelReason)

	n, err := repo.CountActive(ctx, f.CounterID, serviceDate, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTicket_UniqueIndexRejectsDuplicateNumber(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	ctx := context.Background()
	repo := postgresql.NewTicketRepository(db)

	tk := ticket.Ticket{
		LocationID: f.LocationID, CounterID: f.CounterID, ServiceDate: serviceDate,
		Sequence: 1, QueueNumber: "A-001", Status: ticket.StatusWaiting, TrackingCode: uuid.NewString(),
	}
	_, err := repo.Create(ctx, tk)
	require.NoError(t, err)

	tk.TrackingCode = uuid.NewString()
	_, err = repo.Create(ctx, tk)
	require.Error(t, err)
	assert.True(t, postgresql.IsUniqueViolation(err, ""))
	assert.ErrorIs(t, err, ticket.ErrTicketNumberConflict)
}

func TestSummary_Recompute(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	ctx := context.Background()
	tickets := postgresql.NewTicketRepository(db)
	summaries := postgresql.NewSummaryRepository(db)

	for i := 1; i <= 3; i++ {
		_, err := tickets.Create(ctx, ticket.Ticket{
			LocationID: f.LocationID, CounterID: f.CounterID, ServiceDate: serviceDate,
			Sequence: i, QueueNumber: ticket.FormatQueueNumber("A", i), Status: ticket.StatusWaiting,
			TrackingCode: uuid.NewString(),
		})
		require.NoError(t, err)
	}
	_, err := db.Exec(ctx, `UPDATE tickets SET status = 'DONE', called_at = created_at + INTERVAL '60 seconds',
		served_at = created_at + INTERVAL '60 seconds', done_at = created_at + INTERVAL '180 seconds' WHERE sequence = 1`)
	require.NoError(t, err)
	_, err = db.Exec(ctx, `UPDATE tickets SET status = 'CANCELLED' WHERE sequence = 2`)
	require.NoError(t, err)

	rows, err := summaries.Recompute(ctx, summary.Scope{ServiceDate: serviceDate})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	// Idempotent.
	_, err = summaries.Recompute(ctx, summary.Scope{ServiceDate: serviceDate, CounterID: &f.CounterID})
	require.NoError(t, err)

	list, total, err := summaries.List(ctx, summary.SummaryFilter{From: "2025-04-01", To: "2025-04-01", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	s := list[0]
	assert.Equal(t, 3, s.TotalIssued)
	assert.Equal(t, 1, s.TotalDone)
	assert.Equal(t, 1, s.TotalCancelled)
	assert.Equal(t, 1, s.TotalWaiting)
	assert.Equal(t, 60, s.AvgWaitSeconds)
	assert.Equal(t, 120, s.AvgServiceSeconds)
	assert.Equal(t, "General", s.CounterName)
}
