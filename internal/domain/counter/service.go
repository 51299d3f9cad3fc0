package counter

import "context"

type CounterService interface {
	Create(ctx context.Context, req CreateCounterRequest) (CounterResponse, error)
	Get(ctx context.Context, id string) (CounterResponse, error)
	ListByLocation(ctx context.Context, locationID string) ([]CounterResponse, error)
	Update(ctx context.Context, req UpdateCounterRequest) (CounterResponse, error)
	Delete(ctx context.Context, id string) error
}
