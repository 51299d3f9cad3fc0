package dashboard

import (
	"context"
	"math"
	"time"

	"github.com/waitless/waitless-backend-go/internal/domain/dashboard"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/validator"
	"github.com/waitless/waitless-backend-go/internal/service/access"
	"golang.org/x/sync/errgroup"
)

type DashboardServiceImpl struct {
	dashboard.DashboardRepository
	guard *access.Guard
	now   func() time.Time
}

func NewDashboardService(repo dashboard.DashboardRepository, locationRepository location.LocationRepository) dashboard.DashboardService {
	return &DashboardServiceImpl{
		DashboardRepository: repo,
		guard:               access.NewGuard(locationRepository),
		now:                 time.Now,
	}
}

// completionRate returns done/issued as a percentage with one decimal.
func completionRate(done, issued int64) float64 {
	if issued == 0 {
		return 0
	}
	return math.Round(float64(done)/float64(issued)*1000) / 10
}

// GetDashboard returns combined dashboard data using parallel goroutines,
// one query each.
func (s *DashboardServiceImpl) GetDashboard(ctx context.Context, filter dashboard.DashboardFilter) (dashboard.DashboardResponse, error) {
	actor, err := access.Actor(ctx)
	if err != nil {
		return dashboard.DashboardResponse{}, err
	}
	if !actor.Can(user.PermissionReportsView) {
		return dashboard.DashboardResponse{}, user.ErrInsufficientPermissions
	}
	if err := filter.Validate(s.now()); err != nil {
		return dashboard.DashboardResponse{}, err
	}

	ids, all, err := s.guard.Scope(ctx, actor)
	if err != nil {
		return dashboard.DashboardResponse{}, err
	}
	scoped, err := access.Narrow(filter.LocationID, ids, all)
	if err != nil {
		return dashboard.DashboardResponse{}, err
	}

	resp := dashboard.DashboardResponse{
		From:     filter.From,
		To:       filter.To,
		Daily:    []dashboard.DailyPoint{},
		Counters: []dashboard.CounterBreakdown{},
	}
	// An owner without locations has nothing to report; an empty scope
	// would otherwise mean "all locations" to the repository.
	if !all && len(scoped) == 0 {
		return resp, nil
	}

	from, _ := validator.IsValidDate(filter.From)
	to, _ := validator.IsValidDate(filter.To)

	var (
		totals   dashboard.Totals
		daily    []dashboard.DailyPoint
		counters []dashboard.CounterBreakdown
		live     dashboard.LiveStats
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Totals over the range
	g.Go(func() error {
		var err error
		totals, err = s.GetTotals(gCtx, scoped, from, to)
		return err
	})

	// 2. Per-day series
	g.Go(func() error {
		var err error
		daily, err = s.GetDailySeries(gCtx, scoped, from, to)
		return err
	})

	// 3. Per-counter breakdown
	g.Go(func() error {
		var err error
		counters, err = s.GetCounterBreakdown(gCtx, scoped, from, to)
		return err
	})

	// 4. Live counts for today
	g.Go(func() error {
		var err error
		live, err = s.GetLiveStats(gCtx, scoped)
		return err
	})

	if err := g.Wait(); err != nil {
		return dashboard.DashboardResponse{}, err
	}

	resp.Totals = dashboard.TotalsResponse{
		Issued:            totals.Issued,
		Done:              totals.Done,
		Cancelled:         totals.Cancelled,
		CompletionRate:    completionRate(totals.Done, totals.Issued),
		AvgWaitSeconds:    totals.AvgWaitSeconds,
		AvgServiceSeconds: totals.AvgServiceSeconds,
	}
	if daily != nil {
		resp.Daily = daily
	}
	if counters != nil {
		resp.Counters = counters
	}
	resp.Live = dashboard.LiveStatsResponse{
		Waiting: live.Waiting,
		Calling: live.Calling,
		Serving: live.Serving,
		Hold:    live.Hold,
		Done:    live.Done,
	}
	return resp, nil
}
