package fixtures

import (
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
)

// ==========================================
// DEFAULT COUNTERS
// ==========================================

// DefaultCounterName and DefaultCounterPrefix describe the counter every new location starts with.
const (
	DefaultCounterName   = "General"
	DefaultCounterPrefix = "A"
)

// GetDefaultCounters returns the counters seeded for a new location.
// The default counter is always open and has no daily cap.
func GetDefaultCounters(locationID string) []counter.Counter {
	return []counter.Counter{
		{
			LocationID:     locationID,
			Name:           DefaultCounterName,
			Prefix:         DefaultCounterPrefix,
			CapacityPerDay: 0,
			IsActive:       true,
		},
	}
}
