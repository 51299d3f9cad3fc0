package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/domain/dashboard"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/service/servicetest"
)

type fakeRepo struct {
	mu       sync.Mutex
	scopes   [][]string
	from, to time.Time
	failLive bool
}

func (f *fakeRepo) record(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, ids)
}

func (f *fakeRepo) GetTotals(ctx context.Context, locationIDs []string, from, to time.Time) (dashboard.Totals, error) {
	f.record(locationIDs)
	f.mu.Lock()
	f.from, f.to = from, to
	f.mu.Unlock()
	return dashboard.Totals{Issued: 8, Done: 5, Cancelled: 1, AvgWaitSeconds: 120, AvgServiceSeconds: 300}, nil
}

func (f *fakeRepo) GetDailySeries(ctx context.Context, locationIDs []string, from, to time.Time) ([]dashboard.DailyPoint, error) {
	f.record(locationIDs)
	return []dashboard.DailyPoint{{Date: "2026-03-10", Issued: 8, Done: 5}}, nil
}

func (f *fakeRepo) GetCounterBreakdown(ctx context.Context, locationIDs []string, from, to time.Time) ([]dashboard.CounterBreakdown, error) {
	f.record(locationIDs)
	return nil, nil
}

func (f *fakeRepo) GetLiveStats(ctx context.Context, locationIDs []string) (dashboard.LiveStats, error) {
	f.record(locationIDs)
	if f.failLive {
		return dashboard.LiveStats{}, errors.New("connection reset")
	}
	return dashboard.LiveStats{Waiting: 3, Serving: 1}, nil
}

func newService(store *servicetest.Store, repo *fakeRepo) *DashboardServiceImpl {
	svc := NewDashboardService(repo, servicetest.Locations{Store: store}).(*DashboardServiceImpl)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGetDashboard(t *testing.T) {
	store := servicetest.NewStore()
	repo := &fakeRepo{}
	svc := newService(store, repo)
	owner := store.SeedUser("owner@example.com", user.RoleOwner, nil)
	loc := store.SeedLocation(owner.ID, "main", "UTC")

	resp, err := svc.GetDashboard(servicetest.Actor(context.Background(), owner), dashboard.DashboardFilter{})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-04", resp.From)
	assert.Equal(t, "2026-03-10", resp.To)
	assert.Equal(t, "2026-03-04", repo.from.Format("2006-01-02"))
	assert.Equal(t, int64(8), resp.Totals.Issued)
	assert.Equal(t, 62.5, resp.Totals.CompletionRate)
	assert.Len(t, resp.Daily, 1)
	assert.NotNil(t, resp.Counters)
	assert.Equal(t, int64(3), resp.Live.Waiting)

	require.Len(t, repo.scopes, 4)
	for _, ids := range repo.scopes {
		assert.Equal(t, []string{loc.ID}, ids)
	}
}

func TestGetDashboard_Scoping(t *testing.T) {
	store := servicetest.NewStore()
	owner := store.SeedUser("owner@example.com", user.RoleOwner, nil)
	lonely := store.SeedUser("lonely@example.com", user.RoleOwner, nil)
	admin := store.SeedUser("admin@example.com", user.RoleAdmin, nil)
	other := store.SeedUser("other@example.com", user.RoleOwner, nil)
	foreign := store.SeedLocation(other.ID, "foreign", "UTC")
	staffLoc := store.SeedLocation(owner.ID, "main", "UTC")
	staff := store.SeedUser("staff@example.com", user.RoleStaff, &staffLoc.ID)

	t.Run("admin sees all", func(t *testing.T) {
		repo := &fakeRepo{}
		_, err := newService(store, repo).GetDashboard(servicetest.Actor(context.Background(), admin), dashboard.DashboardFilter{})
		require.NoError(t, err)
		for _, ids := range repo.scopes {
			assert.Nil(t, ids)
		}
	})

	t.Run("owner without locations skips queries", func(t *testing.T) {
		repo := &fakeRepo{}
		resp, err := newService(store, repo).GetDashboard(servicetest.Actor(context.Background(), lonely), dashboard.DashboardFilter{})
		require.NoError(t, err)
		assert.Empty(t, repo.scopes)
		assert.Zero(t, resp.Totals.Issued)
		assert.NotNil(t, resp.Daily)
	})

	t.Run("foreign location denied", func(t *testing.T) {
		_, err := newService(store, &fakeRepo{}).GetDashboard(servicetest.Actor(context.Background(), owner), dashboard.DashboardFilter{LocationID: &foreign.ID})
		assert.ErrorIs(t, err, location.ErrLocationAccessDenied)
	})

	t.Run("staff lacks permission", func(t *testing.T) {
		_, err := newService(store, &fakeRepo{}).GetDashboard(servicetest.Actor(context.Background(), staff), dashboard.DashboardFilter{})
		assert.ErrorIs(t, err, user.ErrInsufficientPermissions)
	})

	t.Run("repository failure", func(t *testing.T) {
		_, err := newService(store, &fakeRepo{failLive: true}).GetDashboard(servicetest.Actor(context.Background(), owner), dashboard.DashboardFilter{})
		assert.Error(t, err)
	})
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, completionRate(0, 0))
	assert.Equal(t, 33.3, completionRate(1, 3))
	assert.Equal(t, 100.0, completionRate(4, 4))
}
