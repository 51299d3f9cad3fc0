// Package access decides which locations a caller may read or manage.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
)

// LocationReader is the subset of location.LocationRepository the guard needs.
type LocationReader interface {
	GetByID(ctx context.Context, id string) (location.Location, error)
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type Guard struct {
	locations LocationReader
}

func NewGuard(locations LocationReader) *Guard {
	return &Guard{locations: locations}
}

// Actor returns the authenticated caller or auth.ErrUnauthenticated.
func Actor(ctx context.Context) (jwt.Actor, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return jwt.Actor{}, auth.ErrUnauthenticated
	}
	return actor, nil
}

// CanSee reports whether actor may read loc: admins always, owners their
// own locations, staff their assigned location.
func CanSee(actor jwt.Actor, loc location.Location) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleOwner:
		return loc.OwnerID == actor.UserID
	case user.RoleStaff:
		return actor.LocationID != nil && *actor.LocationID == loc.ID
	}
	return false
}

// CanManage reports whether actor may change loc and its counters.
func CanManage(actor jwt.Actor, loc location.Location) bool {
	switch actor.Role {
	case user.RoleAdmin:
		return true
	case user.RoleOwner:
		return loc.OwnerID == actor.UserID
	}
	return false
}

// Location loads a location and checks the caller may read it.
func (g *Guard) Location(ctx context.Context, actor jwt.Actor, locationID string) (location.Location, error) {
	loc, err := g.locations.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.Location{}, location.ErrLocationNotFound
		}
		return location.Location{}, fmt.Errorf("failed to get location: %w", err)
	}
	if !CanSee(actor, loc) {
		return location.Location{}, location.ErrLocationAccessDenied
	}
	return loc, nil
}

// ManagedLocation loads a location and checks the caller may manage it.
func (g *Guard) ManagedLocation(ctx context.Context, actor jwt.Actor, locationID string) (location.Location, error) {
	loc, err := g.Location(ctx, actor, locationID)
	if err != nil {
		return location.Location{}, err
	}
	if !CanManage(actor, loc) {
		return location.Location{}, location.ErrLocationAccessDenied
	}
	return loc, nil
}

// Scope lists the locations a caller's reads are limited to. all is true
// for admins, in which case ids is nil.
func (g *Guard) Scope(ctx context.Context, actor jwt.Actor) (ids []string, all bool, err error) {
	switch actor.Role {
	case user.RoleAdmin:
		return nil, true, nil
	case user.RoleOwner:
		ids, err := g.locations.ListIDsByOwner(ctx, actor.UserID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to list owned locations: %w", err)
		}
		return ids, false, nil
	case user.RoleStaff:
		if actor.LocationID == nil {
			return []string{}, false, nil
		}
		return []string{*actor.LocationID}, false, nil
	}
	return nil, false, user.ErrInsufficientPermissions
}

// Narrow intersects an optional requested location with the caller's scope.
// It returns location.ErrLocationAccessDenied when the request falls outside it.
func Narrow(requested *string, ids []string, all bool) ([]string, error) {
	if requested == nil {
		if all {
			return nil, nil
		}
		return ids, nil
	}
	if all {
		return []string{*requested}, nil
	}
	for _, id := range ids {
		if id == *requested {
			return []string{id}, nil
		}
	}
	return nil, location.ErrLocationAccessDenied
}
