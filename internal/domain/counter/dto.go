package counter

import (
	"strings"
	"time"

	"github.com/waitless/waitless-backend-go/internal/pkg/slug"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type CreateCounterRequest struct {
	LocationID     string  `json:"-"`
	Name           string  `json:"name"`
	Prefix         string  `json:"prefix"`
	CapacityPerDay int     `json:"capacity_per_day"`
	OpenTime       *string `json:"open_time,omitempty"`
	CloseTime      *string `json:"close_time,omitempty"`
}

func (r *CreateCounterRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Name = slug.Title(r.Name)
	r.Prefix = slug.Prefix(r.Prefix)

	if !validator.IsValidUUID(r.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}
	if validator.IsEmpty(r.Name) {
		errs.Add("name", "name is required")
	} else if len(r.Name) > 100 {
		errs.Add("name", "name must not exceed 100 characters")
	}
	if !validator.IsValidCounterPrefix(r.Prefix) {
		errs.Add("prefix", "prefix must be 1-3 letters")
	}
	if r.CapacityPerDay < 0 {
		errs.Add("capacity_per_day", "capacity_per_day must be 0 (unlimited) or greater")
	}
	validateHours(&errs, r.OpenTime, r.CloseTime)

	return errs.Err()
}

type UpdateCounterRequest struct {
	ID             string  `json:"-"`
	Name           *string `json:"name,omitempty"`
	Prefix         *string `json:"prefix,omitempty"`
	CapacityPerDay *int    `json:"capacity_per_day,omitempty"`
	OpenTime       *string `json:"open_time,omitempty"`
	CloseTime      *string `json:"close_time,omitempty"`
	ClearHours     bool    `json:"clear_hours,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

func (r *UpdateCounterRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if r.Name != nil {
		name := slug.Title(*r.Name)
		r.Name = &name
		if name == "" {
			errs.Add("name", "name must not be empty")
		} else if len(name) > 100 {
			errs.Add("name", "name must not exceed 100 characters")
		}
	}
	if r.Prefix != nil {
		prefix := slug.Prefix(*r.Prefix)
		r.Prefix = &prefix
		if !validator.IsValidCounterPrefix(prefix) {
			errs.Add("prefix", "prefix must be 1-3 letters")
		}
	}
	if r.CapacityPerDay != nil && *r.CapacityPerDay < 0 {
		errs.Add("capacity_per_day", "capacity_per_day must be 0 (unlimited) or greater")
	}
	if r.ClearHours {
		if r.OpenTime != nil || r.CloseTime != nil {
			errs.Add("clear_hours", "clear_hours cannot be combined with open_time or close_time")
		}
	} else {
		validateHours(&errs, r.OpenTime, r.CloseTime)
	}

	return errs.Err()
}

func validateHours(errs *validator.ValidationErrors, open, closeAt *string) {
	if (open == nil) != (closeAt == nil) {
		errs.Add("open_time", "open_time and close_time must be set together")
		return
	}
	if open == nil {
		return
	}
	if !validator.IsValidClockTime(*open) {
		errs.Add("open_time", "open_time must be in HH:MM format")
	}
	if !validator.IsValidClockTime(*closeAt) {
		errs.Add("close_time", "close_time must be in HH:MM format")
	}
}

type CounterResponse struct {
	ID             string    `json:"id"`
	LocationID     string    `json:"location_id"`
	Name           string    `json:"name"`
	Prefix         string    `json:"prefix"`
	CapacityPerDay int       `json:"capacity_per_day"`
	OpenTime       *string   `json:"open_time,omitempty"`
	CloseTime      *string   `json:"close_time,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (c Counter) ToResponse() CounterResponse {
	return CounterResponse{
		ID:             c.ID,
		LocationID:     c.LocationID,
		Name:           c.Name,
		Prefix:         strings.ToUpper(c.Prefix),
		CapacityPerDay: c.CapacityPerDay,
		OpenTime:       c.OpenTime,
		CloseTime:      c.CloseTime,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
