package location

import (
	"strings"
	"time"

	"github.com/waitless/waitless-backend-go/internal/pkg/slug"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

type CreateLocationRequest struct {
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Address  *string `json:"address,omitempty"`
	Timezone string  `json:"timezone"`
}

func (r *CreateLocationRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(r.Slug)
	if r.Slug == "" {
		r.Slug = slug.Make(r.Name)
	}
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}

	if validator.IsEmpty(r.Name) {
		errs.Add("name", "name is required")
	} else if len(r.Name) > 255 {
		errs.Add("name", "name must not exceed 255 characters")
	}
	if !validator.IsValidSlug(r.Slug) {
		errs.Add("slug", "slug must be 3-100 lowercase letters, digits or single hyphens")
	}
	if !validator.IsValidTimezone(r.Timezone) {
		errs.Add("timezone", "timezone must be a valid IANA time zone, e.g. Asia/Jakarta")
	}
	if r.Address != nil && len(*r.Address) > 1000 {
		errs.Add("address", "address must not exceed 1000 characters")
	}

	return errs.Err()
}

type UpdateLocationRequest struct {
	ID       string  `json:"-"`
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (r *UpdateLocationRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
		if validator.IsEmpty(name) {
			errs.Add("name", "name must not be empty")
		} else if len(name) > 255 {
			errs.Add("name", "name must not exceed 255 characters")
		}
	}
	if r.Timezone != nil && !validator.IsValidTimezone(*r.Timezone) {
		errs.Add("timezone", "timezone must be a valid IANA time zone, e.g. Asia/Jakarta")
	}
	if r.Address != nil && len(*r.Address) > 1000 {
		errs.Add("address", "address must not exceed 1000 characters")
	}
	if r.Name == nil && r.Address == nil && r.Timezone == nil && r.IsActive == nil {
		errs.Add("body", "at least one field must be provided")
	}

	return errs.Err()
}

type LocationFilter struct {
	Search  *string
	OwnerID *string // set by the service from the caller, never from the query string
	IDs     []string
	Page    int
	Limit   int
}

type CreateStaffRequest struct {
	LocationID string `json:"-"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Password   string `json:"password"`
}

func (r *CreateStaffRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)

	if !validator.IsValidUUID(r.LocationID) {
		errs.Add("location_id", "location_id must be a valid UUID")
	}
	if validator.IsEmpty(r.Email) {
		errs.Add("email", "email is required")
	} else if !validator.IsValidEmail(r.Email) {
		errs.Add("email", "email must be a valid email address, e.g. user@example.com")
	}
	if validator.IsEmpty(r.FullName) {
		errs.Add("full_name", "full_name is required")
	}
	if len(r.Password) < 8 {
		errs.Add("password", "password must be at least 8 characters long")
	} else if len(r.Password) > 72 {
		errs.Add("password", "password must not exceed 72 characters")
	}

	return errs.Err()
}

type LocationResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Address   *string   `json:"address,omitempty"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l Location) ToResponse() LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		OwnerID:   l.OwnerID,
		Name:      l.Name,
		Slug:      l.Slug,
		Address:   l.Address,
		Timezone:  l.Timezone,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

type ListLocationResponse struct {
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
	Locations  []LocationResponse `json:"locations"`
}

// PublicCounter is a counter as shown on kiosks and the visitor app.
type PublicCounter struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Prefix         string  `json:"prefix"`
	IsOpen         bool    `json:"is_open"`
	OpenTime       *string `json:"open_time,omitempty"`
	CloseTime      *string `json:"close_time,omitempty"`
	NowServing     *string `json:"now_serving,omitempty"`
	WaitingCount   int     `json:"waiting_count"`
	CapacityPerDay int     `json:"capacity_per_day"`
}

type PublicLocationResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Address  *string         `json:"address,omitempty"`
	Timezone string          `json:"timezone"`
	Counters []PublicCounter `json:"counters"`
}
