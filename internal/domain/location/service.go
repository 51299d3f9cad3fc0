package location

import (
	"context"

	"github.com/waitless/waitless-backend-go/internal/domain/user"
)

type LocationService interface {
	// Create creates a location owned by the caller and seeds its default counter.
	Create(ctx context.Context, req CreateLocationRequest) (LocationResponse, error)
	Get(ctx context.Context, id string) (LocationResponse, error)
	List(ctx context.Context, filter LocationFilter) (ListLocationResponse, error)
	Update(ctx context.Context, req UpdateLocationRequest) (LocationResponse, error)
	// Delete deactivates a location that has tickets and removes it otherwise.
	Delete(ctx context.Context, id string) error

	CreateStaff(ctx context.Context, req CreateStaffRequest) (user.UserResponse, error)
	ListStaff(ctx context.Context, locationID string) ([]user.UserResponse, error)

	// GetPublic resolves a location by slug or id without authentication.
	GetPublic(ctx context.Context, slugOrID string) (PublicLocationResponse, error)
}
