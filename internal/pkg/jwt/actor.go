package jwt

import (
	"context"
	"errors"

	"github.com/waitless/waitless-backend-go/internal/domain/user"
)

// ErrNoActor is returned when the request carries no authenticated user.
var ErrNoActor = errors.New("no authenticated actor in context")

// Actor is the authenticated caller, decoded from access token claims.
type Actor struct {
	UserID     string
	Email      string
	Role       user.Role
	LocationID *string
}

// Can reports whether the actor's role grants permission.
func (a Actor) Can(permission user.Permission) bool {
	return user.HasPermission(a.Role, permission)
}

type actorKey struct{}

// WithActor stores the actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == "" {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}

// ActorFromClaims builds an Actor from access token claims.
func ActorFromClaims(claims map[string]interface{}) (Actor, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Actor{}, ErrNoActor
	}
	roleStr, _ := claims["role"].(string)
	role := user.Role(roleStr)
	if !role.Valid() {
		return Actor{}, ErrNoActor
	}
	email, _ := claims["email"].(string)

	actor := Actor{UserID: userID, Email: email, Role: role}
	if locationID, ok := claims["location_id"].(string); ok && locationID != "" {
		actor.LocationID = &locationID
	}
	return actor, nil
}
