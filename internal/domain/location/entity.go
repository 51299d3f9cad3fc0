package location

import "time"

type Location struct {
	ID        string
	OwnerID   string
	Name      string
	Slug      string
	Address   *string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeLocation resolves the location's IANA zone, falling back to UTC.
func (l Location) TimeLocation() *time.Location {
	tz, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return tz
}

// ServiceDate returns the calendar day of now in the location's zone,
// as midnight UTC so it compares cleanly with DATE columns.
func (l Location) ServiceDate(now time.Time) time.Time {
	local := now.In(l.TimeLocation())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
