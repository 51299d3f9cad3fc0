package user

import "errors"

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrUserEmailExists         = errors.New("email already registered")
	ErrOwnerAccessRequired     = errors.New("owner access required")
	ErrStaffAccessRequired     = errors.New("staff access required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
