package cron

import (
	"context"
	"log/slog"
	"time"
)

// SummaryRecomputer is the part of the summary service the jobs need.
type SummaryRecomputer interface {
	RecomputeRange(ctx context.Context, from, to time.Time, locationID *string) (int64, error)
}

type SummaryJobs struct {
	summaries SummaryRecomputer
	interval  time.Duration
	now       func() time.Time
}

func NewSummaryJobs(summaries SummaryRecomputer, interval time.Duration) *SummaryJobs {
	return &SummaryJobs{summaries: summaries, interval: interval, now: time.Now}
}

func (j *SummaryJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("refresh_today_summaries", j.interval, j.RefreshToday)
	scheduler.AddJob("finalize_yesterday_summaries", time.Hour, j.FinalizeYesterday)
}

// RefreshToday recomputes the service dates that can be "today" somewhere:
// UTC yesterday through UTC tomorrow covers every zone from -12 to +14.
func (j *SummaryJobs) RefreshToday(ctx context.Context) error {
	today := j.now().UTC()
	rows, err := j.summaries.RecomputeRange(ctx, today.AddDate(0, 0, -1), today.AddDate(0, 0, 1), nil)
	if err != nil {
		return err
	}
	slog.Debug("Cron: refreshed daily summaries", "rows", rows)
	return nil
}

// FinalizeYesterday recomputes the previous UTC day once, during hour 0.
func (j *SummaryJobs) FinalizeYesterday(ctx context.Context) error {
	now := j.now().UTC()
	if now.Hour() != 0 {
		return nil
	}

	yesterday := now.AddDate(0, 0, -1)
	rows, err := j.summaries.RecomputeRange(ctx, yesterday, yesterday, nil)
	if err != nil {
		return err
	}
	slog.Info("Cron: finalized daily summaries", "date", yesterday.Format("2006-01-02"), "rows", rows)
	return nil
}
