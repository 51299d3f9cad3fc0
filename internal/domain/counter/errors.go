package counter

import "errors"

var (
	ErrCounterNotFound     = errors.New("counter not found")
	ErrCounterPrefixExists = errors.New("counter prefix already used at this location")
	ErrCounterHasTickets   = errors.New("counter has tickets and can only be deactivated")
)
