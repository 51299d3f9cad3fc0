package user

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"   // Platform operator - sees every tenant
	RoleOwner   Role = "owner"   // Owns locations and their counters
	RoleStaff   Role = "staff"   // Operates the counters of one location
	RoleVisitor Role = "visitor" // Takes tickets
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleStaff, RoleVisitor:
		return true
	}
	return false
}

type User struct {
	ID              string
	Email           string
	FullName        string
	PasswordHash    *string
	Role            Role
	LocationID      *string
	OAuthProvider   *string
	OAuthProviderID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAdmin checks if user is a platform admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsOwner checks if user owns locations
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// IsStaff checks if user is counter staff
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
