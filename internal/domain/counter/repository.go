package counter

import "context"

type CounterRepository interface {
	Create(ctx context.Context, newCounter Counter) (Counter, error)
	GetByID(ctx context.Context, id string) (Counter, error)
	// GetForUpdate row-locks the counter until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (Counter, error)
	ListByLocation(ctx context.Context, locationID string, activeOnly bool) ([]Counter, error)
	Update(ctx context.Context, id string, req UpdateCounterRequest) (Counter, error)
	Delete(ctx context.Context, id string) error
	HasTickets(ctx context.Context, id string) (bool, error)
}
