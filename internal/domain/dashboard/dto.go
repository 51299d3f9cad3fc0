package dashboard

import (
	"time"

	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

// DashboardFilter selects the reporting window. Empty dates default to the
// last 7 days ending today.
type DashboardFilter struct {
	LocationID *string
	From       string
	To         string
}

func (f *DashboardFilter) Validate(now time.Time) error {
	var errs validator.ValidationErrors

	if f.To == "" {
		f.To = now.UTC().Format("2006-01-02")
	}
	to, okTo := validator.IsValidDate(f.To)
	if !okTo {
		errs.Add("to", "to must be in YYYY-MM-DD format")
	}
	if f.From == "" && okTo {
		f.From = to.AddDate(0, 0, -6).Format("2006-01-02")
	}
	from, okFrom := validator.IsValidDate(f.From)
	if !okFrom {
		errs.Add("from", "from must be in YYYY-MM-DD format")
	}
	if okFrom && okTo {
		if to.Before(from) {
			errs.Add("to", "to must not be before from")
		} else if to.Sub(from) > 366*24*time.Hour {
			errs.Add("to", "range must not exceed 366 days")
		}
	}
	if f.LocationID != nil && !validator.IsValidUUID(*f.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}

	return errs.Err()
}

// ========== COMBINED DASHBOARD ==========

// DashboardResponse is the combined response for the owner dashboard endpoint
type DashboardResponse struct {
	From     string             `json:"from"`
	To       string             `json:"to"`
	Totals   TotalsResponse     `json:"totals"`
	Daily    []DailyPoint       `json:"daily"`
	Counters []CounterBreakdown `json:"counters"`
	Live     LiveStatsResponse  `json:"live"`
}

// ========== TOTALS ==========

type TotalsResponse struct {
	Issued            int64   `json:"issued"`
	Done              int64   `json:"done"`
	Cancelled         int64   `json:"cancelled"`
	CompletionRate    float64 `json:"completion_rate"` // done / issued, percent
	AvgWaitSeconds    int     `json:"avg_wait_seconds"`
	AvgServiceSeconds int     `json:"avg_service_seconds"`
}

// ========== DAILY SERIES (line chart) ==========

type DailyPoint struct {
	Date           string `json:"date"` // Format: "YYYY-MM-DD"
	Issued         int64  `json:"issued"`
	Done           int64  `json:"done"`
	Cancelled      int64  `json:"cancelled"`
	AvgWaitSeconds int    `json:"avg_wait_seconds"`
}

// ========== PER COUNTER ==========

type CounterBreakdown struct {
	CounterID         string `json:"counter_id"`
	CounterName       string `json:"counter_name"`
	LocationID        string `json:"location_id"`
	Issued            int64  `json:"issued"`
	Done              int64  `json:"done"`
	Cancelled         int64  `json:"cancelled"`
	AvgWaitSeconds    int    `json:"avg_wait_seconds"`
	AvgServiceSeconds int    `json:"avg_service_seconds"`
}

// ========== LIVE (today, from tickets) ==========

type LiveStatsResponse struct {
	Waiting int64 `json:"waiting"`
	Calling int64 `json:"calling"`
	Serving int64 `json:"serving"`
	Hold    int64 `json:"hold"`
	Done    int64 `json:"done"`
}
