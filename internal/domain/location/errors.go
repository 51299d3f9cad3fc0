package location

import "errors"

var (
	ErrLocationNotFound     = errors.New("location not found")
	ErrLocationSlugExists   = errors.New("location slug already exists")
	ErrLocationInactive     = errors.New("location is inactive")
	ErrLocationAccessDenied = errors.New("no access to this location")
	ErrStaffEmailExists     = errors.New("email already registered")
)
