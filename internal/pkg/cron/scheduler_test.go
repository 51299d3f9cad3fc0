package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsImmediatelyAndOnInterval(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddJob("count", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler()
	s.AddJob("boom", time.Hour, func(ctx context.Context) error {
		panic("kaboom")
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "kaboom")
}

func TestScheduler_RunOnceReturnsFirstError(t *testing.T) {
	s := NewScheduler()
	first := errors.New("first")
	var ran []string
	s.AddJob("a", time.Hour, func(ctx context.Context) error { ran = append(ran, "a"); return first })
	s.AddJob("b", time.Hour, func(ctx context.Context) error { ran = append(ran, "b"); return errors.New("second") })

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, []string{"a", "b"}, s.Jobs())
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	NewScheduler().Stop()
}

type fakeRecomputer struct {
	calls [][2]time.Time
}

func (f *fakeRecomputer) RecomputeRange(ctx context.Context, from, to time.Time, locationID *string) (int64, error) {
	f.calls = append(f.calls, [2]time.Time{from, to})
	return 1, nil
}

func TestSummaryJobs_RefreshTodayCoversAllZones(t *testing.T) {
	rec := &fakeRecomputer{}
	j := NewSummaryJobs(rec, 15*time.Minute)
	j.now = func() time.Time { return time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC) }

	require.NoError(t, j.RefreshToday(context.Background()))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "2025-06-09", rec.calls[0][0].Format("2006-01-02"))
	assert.Equal(t, "2025-06-11", rec.calls[0][1].Format("2006-01-02"))
}

func TestSummaryJobs_FinalizeYesterdayOnlyAtMidnightHour(t *testing.T) {
	rec := &fakeRecomputer{}
	j := NewSummaryJobs(rec, 15*time.Minute)

	j.now = func() time.Time { return time.Date(2025, 6, 10, 5, 0, 0, 0, time.UTC) }
	require.NoError(t, j.FinalizeYesterday(context.Background()))
	assert.Empty(t, rec.calls)

	j.now = func() time.Time { return time.Date(2025, 6, 10, 0, 20, 0, 0, time.UTC) }
	require.NoError(t, j.FinalizeYesterday(context.Background()))
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "2025-06-09", rec.calls[0][0].Format("2006-01-02"))
	assert.Equal(t, rec.calls[0][0], rec.calls[0][1])
}

func TestSummaryJobs_Register(t *testing.T) {
	s := NewScheduler()
	NewSummaryJobs(&fakeRecomputer{}, time.Minute).RegisterJobs(s)
	assert.Equal(t, []string{"refresh_today_summaries", "finalize_yesterday_summaries"}, s.Jobs())
}
