package location

import "context"

type LocationRepository interface {
	Create(ctx context.Context, newLocation Location) (Location, error)
	GetByID(ctx context.Context, id string) (Location, error)
	GetBySlug(ctx context.Context, slug string) (Location, error)
	List(ctx context.Context, filter LocationFilter) ([]Location, int64, error)
	Update(ctx context.Context, id string, req UpdateLocationRequest) (Location, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	HasTickets(ctx context.Context, id string) (bool, error)
	ListIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}
