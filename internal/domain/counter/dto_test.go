package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
)

const testLocationID = "6f1c2a4e-3b5d-4c7e-9f10-2a3b4c5d6e7f"

func TestCreateCounterRequest_Normalizes(t *testing.T) {
	req := CreateCounterRequest{LocationID: testLocationID, Name: "  general  desk ", Prefix: " ab "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "General Desk", req.Name)
	assert.Equal(t, "AB", req.Prefix)
}

func TestCreateCounterRequest_Invalid(t *testing.T) {
	open := "8:00"
	req := CreateCounterRequest{
		LocationID:     "nope",
		Name:           "",
		Prefix:         "ABCD",
		CapacityPerDay: -1,
		OpenTime:       &open,
	}
	err := req.Validate()
	require.Error(t, err)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := errs.ToMap()
	for _, f := range []string{"location_id", "name", "prefix", "capacity_per_day", "open_time"} {
		assert.Contains(t, fields, f)
	}
}

func TestUpdateCounterRequest_ClearHoursConflict(t *testing.T) {
	open, closeAt := "08:00", "17:00"
	req := UpdateCounterRequest{ID: testLocationID, ClearHours: true, OpenTime: &open, CloseTime: &closeAt}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear_hours")
}

func TestUpdateCounterRequest_PrefixUpperCased(t *testing.T) {
	prefix := "b"
	req := UpdateCounterRequest{ID: testLocationID, Prefix: &prefix}
	require.NoError(t, req.Validate())
	assert.Equal(t, "B", *req.Prefix)
}
