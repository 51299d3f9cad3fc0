package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/service/access"
)

type CounterServiceImpl struct {
	counter.CounterRepository
	guard *access.Guard
}

func NewCounterService(counterRepository counter.CounterRepository, locationRepository location.LocationRepository) counter.CounterService {
	return &CounterServiceImpl{
		CounterRepository: counterRepository,
		guard:             access.NewGuard(locationRepository),
	}
}

func (s *CounterServiceImpl) getCounter(ctx context.Context, id string) (counter.Counter, error) {
	c, err := s.CounterRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter.Counter{}, counter.ErrCounterNotFound
		}
		return counter.Counter{}, fmt.Errorf("failed to get counter: %w", err)
	}
	return c, nil
}

// managedCounter loads a counter the caller is allowed to change.
func (s *CounterServiceImpl) managedCounter(ctx context.Context, id string) (counter.Counter, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return counter.Counter{}, err
	}
	if !actor.Can(user.PermissionCounterManage) {
		return counter.Counter{}, user.ErrOwnerAccessRequired
	}
	c, err := s.getCounter(ctx, id)
	if err != nil {
		return counter.Counter{}, err
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, c.LocationID); err != nil {
		return counter.Counter{}, err
	}
	return c, nil
}

// Create implements counter.CounterService.
func (s *CounterServiceImpl) Create(ctx context.Context, req counter.CreateCounterRequest) (counter.CounterResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return counter.CounterResponse{}, err
	}
	if !actor.Can(user.PermissionCounterManage) {
		return counter.CounterResponse{}, user.ErrOwnerAccessRequired
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, req.LocationID); err != nil {
		return counter.CounterResponse{}, err
	}

	created, err := s.CounterRepository.Create(ctx, counter.Counter{
		LocationID:     req.LocationID,
		Name:           req.Name,
		Prefix:         req.Prefix,
		CapacityPerDay: req.CapacityPerDay,
		OpenTime:       req.OpenTime,
		CloseTime:      req.CloseTime,
		IsActive:       true,
	})
	if err != nil {
		if errors.Is(err, counter.ErrCounterPrefixExists) {
			return counter.CounterResponse{}, err
		}
		return counter.CounterResponse{}, fmt.Errorf("failed to create counter: %w", err)
	}

	slog.Info("counter created", "counter_id", created.ID, "location_id", created.LocationID, "prefix", created.Prefix)
	return created.ToResponse(), nil
}

// Get implements counter.CounterService.
func (s *CounterServiceImpl) Get(ctx context.Context, id string) (counter.CounterResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return counter.CounterResponse{}, err
	}
	c, err := s.getCounter(ctx, id)
	if err != nil {
		return counter.CounterResponse{}, err
	}
	if _, err := s.guard.Location(ctx, actor, c.LocationID); err != nil {
		return counter.CounterResponse{}, err
	}
	return c.ToResponse(), nil
}

// ListByLocation implements counter.CounterService.
func (s *CounterServiceImpl) ListByLocation(ctx context.Context, locationID string) ([]counter.CounterResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.Location(ctx, actor, locationID); err != nil {
		return nil, err
	}

	counters, err := s.CounterRepository.ListByLocation(ctx, locationID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list counters: %w", err)
	}
	resp := make([]counter.CounterResponse, 0, len(counters))
	for _, c := range counters {
		resp = append(resp, c.ToResponse())
	}
	return resp, nil
}

// Update implements counter.CounterService.
func (s *CounterServiceImpl) Update(ctx context.Context, req counter.UpdateCounterRequest) (counter.CounterResponse, error) {
	if _, err := s.managedCounter(ctx, req.ID); err != nil {
		return counter.CounterResponse{}, err
	}

	updated, err := s.CounterRepository.Update(ctx, req.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return counter.CounterResponse{}, counter.ErrCounterNotFound
		case errors.Is(err, counter.ErrCounterPrefixExists):
			return counter.CounterResponse{}, err
		}
		return counter.CounterResponse{}, fmt.Errorf("failed to update counter: %w", err)
	}
	return updated.ToResponse(), nil
}

// Delete implements counter.CounterService. Counters with ticket history
// cannot be removed; deactivate them instead.
func (s *CounterServiceImpl) Delete(ctx context.Context, id string) error {
	if _, err := s.managedCounter(ctx, id); err != nil {
		return err
	}

	hasTickets, err := s.CounterRepository.HasTickets(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check counter tickets: %w", err)
	}
	if hasTickets {
		return counter.ErrCounterHasTickets
	}

	if err := s.CounterRepository.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return counter.ErrCounterNotFound
		}
		return fmt.Errorf("failed to delete counter: %w", err)
	}
	slog.Info("counter deleted", "counter_id", id)
	return nil
}
