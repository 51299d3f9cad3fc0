package summary

import (
	"time"

	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

// MaxRangeDays bounds both recompute and list ranges.
const MaxRangeDays = 366

type RecomputeRequest struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	LocationID *string `json:"location_id,omitempty"`
}

func (r *RecomputeRequest) Validate() error {
	var errs validator.ValidationErrors
	validateRange(&errs, r.From, r.To)
	if r.LocationID != nil && !validator.IsValidUUID(*r.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}
	return errs.Err()
}

// Range returns the parsed bounds. Call after Validate.
func (r *RecomputeRequest) Range() (time.Time, time.Time) {
	from, _ := validator.IsValidDate(r.From)
	to, _ := validator.IsValidDate(r.To)
	return from, to
}

type RecomputeResponse struct {
	From        string `json:"from"`
	To          string `json:"to"`
	RowsWritten int64  `json:"rows_written"`
}

type SummaryFilter struct {
	LocationID  *string
	CounterID   *string
	From        string
	To          string
	LocationIDs []string // tenant scope, set by the service
	Page        int
	Limit       int
}

func (f *SummaryFilter) Validate() error {
	var errs validator.ValidationErrors
	validateRange(&errs, f.From, f.To)
	if f.LocationID != nil && !validator.IsValidUUID(*f.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}
	if f.CounterID != nil && !validator.IsValidUUID(*f.CounterID) {
		errs.Add("counter_id", "counter_id must be a valid UUID")
	}
	return errs.Err()
}

func validateRange(errs *validator.ValidationErrors, fromStr, toStr string) {
	from, okFrom := validator.IsValidDate(fromStr)
	if !okFrom {
		errs.Add("from", "from must be in YYYY-MM-DD format")
	}
	to, okTo := validator.IsValidDate(toStr)
	if !okTo {
		errs.Add("to", "to must be in YYYY-MM-DD format")
	}
	if okFrom && okTo {
		if to.Before(from) {
			errs.Add("to", "to must not be before from")
		} else if to.Sub(from) > MaxRangeDays*24*time.Hour {
			errs.Add("to", "range must not exceed 366 days")
		}
	}
}

type SummaryResponse struct {
	LocationID        string    `json:"location_id"`
	CounterID         string    `json:"counter_id"`
	CounterName       string    `json:"counter_name"`
	ServiceDate       string    `json:"service_date"`
	TotalIssued       int       `json:"total_issued"`
	TotalDone         int       `json:"total_done"`
	TotalCancelled    int       `json:"total_cancelled"`
	TotalWaiting      int       `json:"total_waiting"`
	AvgWaitSeconds    int       `json:"avg_wait_seconds"`
	AvgServiceSeconds int       `json:"avg_service_seconds"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (s DailySummary) ToResponse() SummaryResponse {
	return SummaryResponse{
		LocationID:        s.LocationID,
		CounterID:         s.CounterID,
		CounterName:       s.CounterName,
		ServiceDate:       s.ServiceDate.Format("2006-01-02"),
		TotalIssued:       s.TotalIssued,
		TotalDone:         s.TotalDone,
		TotalCancelled:    s.TotalCancelled,
		TotalWaiting:      s.TotalWaiting,
		AvgWaitSeconds:    s.AvgWaitSeconds,
		AvgServiceSeconds: s.AvgServiceSeconds,
		UpdatedAt:         s.UpdatedAt,
	}
}

type ListSummaryResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Summaries  []SummaryResponse `json:"summaries"`
}
