package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/fixtures"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	"github.com/waitless/waitless-backend-go/internal/service/access"
	"golang.org/x/crypto/bcrypt"
)

// BoardReader provides live per-counter queue state.
type BoardReader interface {
	Board(ctx context.Context, locationID string, serviceDate time.Time) ([]ticket.CounterBoard, error)
}

type LocationServiceImpl struct {
	tx postgresql.Transactor
	location.LocationRepository
	counter.CounterRepository
	user.UserRepository
	board BoardReader
	guard *access.Guard
	now   func() time.Time
}

func NewLocationService(
	tx postgresql.Transactor,
	locationRepository location.LocationRepository,
	counterRepository counter.CounterRepository,
	userRepository user.UserRepository,
	board BoardReader,
) location.LocationService {
	return &LocationServiceImpl{
		tx:                 tx,
		LocationRepository: locationRepository,
		CounterRepository:  counterRepository,
		UserRepository:     userRepository,
		board:              board,
		guard:              access.NewGuard(locationRepository),
		now:                time.Now,
	}
}

// Create implements location.LocationService.
func (s *LocationServiceImpl) Create(ctx context.Context, req location.CreateLocationRequest) (location.LocationResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return location.LocationResponse{}, err
	}
	if !actor.Can(user.PermissionLocationManage) {
		return location.LocationResponse{}, user.ErrOwnerAccessRequired
	}

	var created location.Location
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		created, err = s.LocationRepository.Create(txCtx, location.Location{
			OwnerID:  actor.UserID,
			Name:     req.Name,
			Slug:     req.Slug,
			Address:  req.Address,
			Timezone: req.Timezone,
			IsActive: true,
		})
		if err != nil {
			return err
		}

		for _, c := range fixtures.GetDefaultCounters(created.ID) {
			if _, err := s.CounterRepository.Create(txCtx, c); err != nil {
				return fmt.Errorf("failed to seed default counter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, location.ErrLocationSlugExists) {
			return location.LocationResponse{}, err
		}
		return location.LocationResponse{}, fmt.Errorf("failed to create location: %w", err)
	}

	slog.Info("location created", "location_id", created.ID, "owner_id", actor.UserID, "slug", created.Slug)
	return created.ToResponse(), nil
}

// Get implements location.LocationService.
func (s *LocationServiceImpl) Get(ctx context.Context, id string) (location.LocationResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return location.LocationResponse{}, err
	}
	loc, err := s.guard.Location(ctx, actor, id)
	if err != nil {
		return location.LocationResponse{}, err
	}
	return loc.ToResponse(), nil
}

// List implements location.LocationService.
func (s *LocationServiceImpl) List(ctx context.Context, filter location.LocationFilter) (location.ListLocationResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return location.ListLocationResponse{}, err
	}

	page := pagination.New(filter.Page, filter.Limit)
	filter.Page, filter.Limit = page.Page, page.Limit
	filter.OwnerID = nil
	filter.IDs = nil

	switch actor.Role {
	case user.RoleAdmin:
	case user.RoleOwner:
		filter.OwnerID = &actor.UserID
	case user.RoleStaff:
		if actor.LocationID == nil {
			return emptyList(page), nil
		}
		filter.IDs = []string{*actor.LocationID}
	default:
		return location.ListLocationResponse{}, user.ErrInsufficientPermissions
	}

	locations, total, err := s.LocationRepository.List(ctx, filter)
	if err != nil {
		return location.ListLocationResponse{}, fmt.Errorf("failed to list locations: %w", err)
	}

	resp := location.ListLocationResponse{
		TotalCount: total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
		Locations:  make([]location.LocationResponse, 0, len(locations)),
	}
	for _, l := range locations {
		resp.Locations = append(resp.Locations, l.ToResponse())
	}
	return resp, nil
}

func emptyList(page pagination.Params) location.ListLocationResponse {
	return location.ListLocationResponse{
		Page:      page.Page,
		Limit:     page.Limit,
		Locations: []location.LocationResponse{},
	}
}

// Update implements location.LocationService.
func (s *LocationServiceImpl) Update(ctx context.Context, req location.UpdateLocationRequest) (location.LocationResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return location.LocationResponse{}, err
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, req.ID); err != nil {
		return location.LocationResponse{}, err
	}

	updated, err := s.LocationRepository.Update(ctx, req.ID, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.LocationResponse{}, location.ErrLocationNotFound
		}
		return location.LocationResponse{}, fmt.Errorf("failed to update location: %w", err)
	}
	return updated.ToResponse(), nil
}

// Delete implements location.LocationService.
func (s *LocationServiceImpl) Delete(ctx context.Context, id string) error {
	actor, err := access.Actor(ctx)
	if err != nil {
		return err
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, id); err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		hasTickets, err := s.LocationRepository.HasTickets(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to check location tickets: %w", err)
		}

		// Ticket history feeds summaries, so locations with tickets are only deactivated.
		if hasTickets {
			err = s.LocationRepository.Deactivate(txCtx, id)
		} else {
			err = s.LocationRepository.Delete(txCtx, id)
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return location.ErrLocationNotFound
			}
			return fmt.Errorf("failed to delete location: %w", err)
		}

		slog.Info("location deleted", "location_id", id, "soft", hasTickets)
		return nil
	})
}

// CreateStaff implements location.LocationService.
func (s *LocationServiceImpl) CreateStaff(ctx context.Context, req location.CreateStaffRequest) (user.UserResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return user.UserResponse{}, err
	}
	if !actor.Can(user.PermissionStaffManage) {
		return user.UserResponse{}, user.ErrOwnerAccessRequired
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, req.LocationID); err != nil {
		return user.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}
	hashed := string(hash)
	locationID := req.LocationID

	staff, err := s.UserRepository.Create(ctx, user.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: &hashed,
		Role:         user.RoleStaff,
		LocationID:   &locationID,
	})
	if err != nil {
		if errors.Is(err, user.ErrUserEmailExists) {
			return user.UserResponse{}, location.ErrStaffEmailExists
		}
		return user.UserResponse{}, fmt.Errorf("failed to create staff: %w", err)
	}

	slog.Info("staff created", "user_id", staff.ID, "location_id", locationID)
	return staff.ToResponse(), nil
}

// ListStaff implements location.LocationService.
func (s *LocationServiceImpl) ListStaff(ctx context.Context, locationID string) ([]user.UserResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.ManagedLocation(ctx, actor, locationID); err != nil {
		return nil, err
	}

	staff, err := s.UserRepository.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	resp := make([]user.UserResponse, 0, len(staff))
	for _, u := range staff {
		resp = append(resp, u.ToResponse())
	}
	return resp, nil
}

// GetPublic implements location.LocationService.
func (s *LocationServiceImpl) GetPublic(ctx context.Context, slugOrID string) (location.PublicLocationResponse, error) {
	var (
		loc location.Location
		err error
	)
	if validator.IsValidUUID(slugOrID) {
		loc, err = s.LocationRepository.GetByID(ctx, slugOrID)
	} else {
		loc, err = s.LocationRepository.GetBySlug(ctx, slugOrID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.PublicLocationResponse{}, location.ErrLocationNotFound
		}
		return location.PublicLocationResponse{}, fmt.Errorf("failed to get location: %w", err)
	}
	// Deactivated locations disappear from public views.
	if !loc.IsActive {
		return location.PublicLocationResponse{}, location.ErrLocationNotFound
	}

	counters, err := s.CounterRepository.ListByLocation(ctx, loc.ID, true)
	if err != nil {
		return location.PublicLocationResponse{}, fmt.Errorf("failed to list counters: %w", err)
	}

	now := s.now()
	boards, err := s.board.Board(ctx, loc.ID, loc.ServiceDate(now))
	if err != nil {
		return location.PublicLocationResponse{}, fmt.Errorf("failed to load board: %w", err)
	}
	byCounter := make(map[string]ticket.CounterBoard, len(boards))
	for _, b := range boards {
		byCounter[b.CounterID] = b
	}

	local := now.In(loc.TimeLocation())
	resp := location.PublicLocationResponse{
		ID:       loc.ID,
		Name:     loc.Name,
		Slug:     loc.Slug,
		Address:  loc.Address,
		Timezone: loc.Timezone,
		Counters: make([]location.PublicCounter, 0, len(counters)),
	}
	for _, c := range counters {
		b := byCounter[c.ID]
		resp.Counters = append(resp.Counters, location.PublicCounter{
			ID:             c.ID,
			Name:           c.Name,
			Prefix:         c.Prefix,
			IsOpen:         c.IsOpenAt(local),
			OpenTime:       c.OpenTime,
			CloseTime:      c.CloseTime,
			NowServing:     b.Current,
			WaitingCount:   b.WaitingCount,
			CapacityPerDay: c.CapacityPerDay,
		})
	}
	return resp, nil
}
