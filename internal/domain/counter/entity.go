package counter

import "time"

type Counter struct {
	ID             string
	LocationID     string
	Name           string
	Prefix         string
	CapacityPerDay int     // 0 = unlimited
	OpenTime       *string // "HH:MM" in the location's zone
	CloseTime      *string // "HH:MM"; before OpenTime means the window crosses midnight
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOpenAt reports whether local (already converted to the location's zone)
// falls inside the counter's operating hours. Counters without hours are
// always open.
func (c Counter) IsOpenAt(local time.Time) bool {
	if c.OpenTime == nil || c.CloseTime == nil {
		return true
	}
	open, ok := minuteOfDay(*c.OpenTime)
	if !ok {
		return true
	}
	closeAt, ok := minuteOfDay(*c.CloseTime)
	if !ok {
		return true
	}
	now := local.Hour()*60 + local.Minute()

	if open == closeAt {
		return true
	}
	if open < closeAt {
		return now >= open && now < closeAt
	}
	return now >= open || now < closeAt
}

// HasCapacity reports whether one more ticket fits after issued tickets.
func (c Counter) HasCapacity(issued int) bool {
	return c.CapacityPerDay == 0 || issued < c.CapacityPerDay
}

func minuteOfDay(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
