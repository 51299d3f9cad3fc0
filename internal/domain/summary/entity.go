package summary

import "time"

// DailySummary aggregates one counter's tickets for one service date.
type DailySummary struct {
	LocationID        string
	CounterID         string
	CounterName       string
	ServiceDate       time.Time
	TotalIssued       int
	TotalDone         int
	TotalCancelled    int
	TotalWaiting      int
	AvgWaitSeconds    int
	AvgServiceSeconds int
	UpdatedAt         time.Time
}

// Scope narrows a recompute. Nil fields mean "all".
type Scope struct {
	ServiceDate time.Time
	LocationID  *string
	CounterID   *string
}

// DateRange returns every day from..to inclusive, or nil if to < from.
func DateRange(from, to time.Time) []time.Time {
	from = truncateDay(from)
	to = truncateDay(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
