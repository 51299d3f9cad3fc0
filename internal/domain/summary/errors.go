package summary

import "errors"

var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrRangeTooLarge    = errors.New("date range must not exceed 366 days")
)
