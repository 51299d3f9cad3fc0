package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/pagination"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	"github.com/waitless/waitless-backend-go/internal/service/access"
)

type SummaryServiceImpl struct {
	tx postgresql.Transactor
	summary.SummaryRepository
	guard *access.Guard
}

func NewSummaryService(tx postgresql.Transactor, summaryRepository summary.SummaryRepository, locationRepository location.LocationRepository) summary.SummaryService {
	return &SummaryServiceImpl{
		tx:                tx,
		SummaryRepository: summaryRepository,
		guard:             access.NewGuard(locationRepository),
	}
}

// Recompute implements summary.SummaryService.
func (s *SummaryServiceImpl) Recompute(ctx context.Context, req summary.RecomputeRequest) (summary.RecomputeResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return summary.RecomputeResponse{}, err
	}
	if !actor.Can(user.PermissionReportsView) {
		return summary.RecomputeResponse{}, user.ErrInsufficientPermissions
	}

	// Owners recompute their own locations; only admins may recompute everything at once.
	var scopes []*string
	switch {
	case req.LocationID != nil:
		if _, err := s.guard.ManagedLocation(ctx, actor, *req.LocationID); err != nil {
			return summary.RecomputeResponse{}, err
		}
		scopes = []*string{req.LocationID}
	case actor.Role == user.RoleAdmin:
		scopes = []*string{nil}
	default:
		ids, _, err := s.guard.Scope(ctx, actor)
		if err != nil {
			return summary.RecomputeResponse{}, err
		}
		for i := range ids {
			scopes = append(scopes, &ids[i])
		}
	}

	from, to := req.Range()
	var rows int64
	for _, locationID := range scopes {
		n, err := s.RecomputeRange(ctx, from, to, locationID)
		if err != nil {
			return summary.RecomputeResponse{}, err
		}
		rows += n
	}

	slog.Info("daily summaries recomputed", "from", req.From, "to", req.To, "rows", rows, "actor_id", actor.UserID)
	return summary.RecomputeResponse{From: req.From, To: req.To, RowsWritten: rows}, nil
}

// RecomputeRange implements summary.SummaryService.
func (s *SummaryServiceImpl) RecomputeRange(ctx context.Context, from, to time.Time, locationID *string) (int64, error) {
	days := summary.DateRange(from, to)
	if len(days) == 0 {
		return 0, summary.ErrInvalidDateRange
	}
	if len(days) > summary.MaxRangeDays+1 {
		return 0, summary.ErrRangeTooLarge
	}

	var rows int64
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		for _, day := range days {
			n, err := s.SummaryRepository.Recompute(txCtx, summary.Scope{ServiceDate: day, LocationID: locationID})
			if err != nil {
				return fmt.Errorf("failed to recompute %s: %w", day.Format("2006-01-02"), err)
			}
			rows += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// RefreshCounter implements summary.SummaryService.
func (s *SummaryServiceImpl) RefreshCounter(ctx context.Context, locationID, counterID string, serviceDate time.Time) error {
	_, err := s.SummaryRepository.Recompute(ctx, summary.Scope{
		ServiceDate: serviceDate,
		LocationID:  &locationID,
		CounterID:   &counterID,
	})
	if err != nil {
		return fmt.Errorf("failed to refresh summary for counter %s: %w", counterID, err)
	}
	return nil
}

// List implements summary.SummaryService.
func (s *SummaryServiceImpl) List(ctx context.Context, filter summary.SummaryFilter) (summary.ListSummaryResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return summary.ListSummaryResponse{}, err
	}
	if !actor.Can(user.PermissionReportsView) {
		return summary.ListSummaryResponse{}, user.ErrInsufficientPermissions
	}

	ids, all, err := s.guard.Scope(ctx, actor)
	if err != nil {
		return summary.ListSummaryResponse{}, err
	}
	scoped, err := access.Narrow(filter.LocationID, ids, all)
	if err != nil {
		return summary.ListSummaryResponse{}, err
	}

	page := pagination.New(filter.Page, filter.Limit)
	resp := summary.ListSummaryResponse{
		Page:      page.Page,
		Limit:     page.Limit,
		Summaries: []summary.SummaryResponse{},
	}
	if !all && len(scoped) == 0 {
		return resp, nil
	}

	filter.LocationIDs = scoped
	filter.Page, filter.Limit = page.Page, page.Limit
	summaries, total, err := s.SummaryRepository.List(ctx, filter)
	if err != nil {
		return summary.ListSummaryResponse{}, fmt.Errorf("failed to list summaries: %w", err)
	}

	resp.TotalCount = total
	resp.TotalPages = page.TotalPages(total)
	for _, item := range summaries {
		resp.Summaries = append(resp.Summaries, item.ToResponse())
	}
	return resp, nil
}
