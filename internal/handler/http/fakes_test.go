package http

import (
	"context"
	"time"

	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/dashboard"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/summary"
	"github.com/waitless/waitless-backend-go/internal/domain/ticket"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
)

type fakeAuthService struct {
	err          error
	loggedOut    string
	loggedOutAll string
	refreshToken string
}

func (f *fakeAuthService) tokens() auth.TokenResponse {
	return auth.TokenResponse{
		AccessToken:           "access",
		AccessTokenExpiresIn:  time.Now().Add(time.Hour).Unix(),
		RefreshToken:          "refresh",
		RefreshTokenExpiresIn: time.Now().Add(24 * time.Hour).Unix(),
	}
}

func (f *fakeAuthService) Register(ctx context.Context, req auth.RegisterRequest, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	if f.err != nil {
		return auth.TokenResponse{}, f.err
	}
	return f.tokens(), nil
}

func (f *fakeAuthService) Login(ctx context.Context, req auth.LoginRequest, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	if f.err != nil {
		return auth.TokenResponse{}, f.err
	}
	return f.tokens(), nil
}

func (f *fakeAuthService) LoginWithGoogle(ctx context.Context, googleEmail, googleID, fullName string, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	return f.tokens(), f.err
}

func (f *fakeAuthService) Logout(ctx context.Context, refreshToken string) error {
	f.loggedOut = refreshToken
	return f.err
}

func (f *fakeAuthService) LogoutAll(ctx context.Context) error {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return auth.ErrUnauthenticated
	}
	f.loggedOutAll = actor.UserID
	return f.err
}

func (f *fakeAuthService) RefreshToken(ctx context.Context, req auth.RefreshTokenRequest) (auth.AccessTokenResponse, error) {
	f.refreshToken = req.RefreshToken
	if f.err != nil {
		return auth.AccessTokenResponse{}, f.err
	}
	return auth.AccessTokenResponse{AccessToken: "new-access"}, nil
}

func (f *fakeAuthService) Me(ctx context.Context) (user.UserResponse, error) {
	actor, err := jwt.ActorFromContext(ctx)
	if err != nil {
		return user.UserResponse{}, auth.ErrUnauthenticated
	}
	return user.UserResponse{ID: actor.UserID, Email: actor.Email, Role: string(actor.Role)}, nil
}

type fakeLocationService struct {
	err    error
	filter location.LocationFilter
}

func (f *fakeLocationService) Create(ctx context.Context, req location.CreateLocationRequest) (location.LocationResponse, error) {
	return location.LocationResponse{ID: "11111111-1111-1111-1111-111111111111", Name: req.Name, Slug: req.Slug}, f.err
}

func (f *fakeLocationService) Get(ctx context.Context, id string) (location.LocationResponse, error) {
	return location.LocationResponse{ID: id}, f.err
}

func (f *fakeLocationService) List(ctx context.Context, filter location.LocationFilter) (location.ListLocationResponse, error) {
	f.filter = filter
	return location.ListLocationResponse{
		TotalCount: 3,
		Page:       2,
		Limit:      2,
		TotalPages: 2,
		Locations:  []location.LocationResponse{{ID: "c"}},
	}, f.err
}

func (f *fakeLocationService) Update(ctx context.Context, req location.UpdateLocationRequest) (location.LocationResponse, error) {
	return location.LocationResponse{ID: req.ID}, f.err
}

func (f *fakeLocationService) Delete(ctx context.Context, id string) error { return f.err }

func (f *fakeLocationService) CreateStaff(ctx context.Context, req location.CreateStaffRequest) (user.UserResponse, error) {
	return user.UserResponse{Email: req.Email, Role: string(user.RoleStaff), LocationID: &req.LocationID}, f.err
}

func (f *fakeLocationService) ListStaff(ctx context.Context, locationID string) ([]user.UserResponse, error) {
	return []user.UserResponse{}, f.err
}

func (f *fakeLocationService) GetPublic(ctx context.Context, slugOrID string) (location.PublicLocationResponse, error) {
	if f.err != nil {
		return location.PublicLocationResponse{}, f.err
	}
	return location.PublicLocationResponse{ID: slugOrID, Slug: slugOrID, Counters: []location.PublicCounter{}}, nil
}

type fakeCounterService struct {
	err error
}

func (f *fakeCounterService) Create(ctx context.Context, req counter.CreateCounterRequest) (counter.CounterResponse, error) {
	return counter.CounterResponse{LocationID: req.LocationID, Prefix: req.Prefix}, f.err
}

func (f *fakeCounterService) Get(ctx context.Context, id string) (counter.CounterResponse, error) {
	return counter.CounterResponse{ID: id}, f.err
}

func (f *fakeCounterService) ListByLocation(ctx context.Context, locationID string) ([]counter.CounterResponse, error) {
	return []counter.CounterResponse{}, f.err
}

func (f *fakeCounterService) Update(ctx context.Context, req counter.UpdateCounterRequest) (counter.CounterResponse, error) {
	return counter.CounterResponse{ID: req.ID}, f.err
}

func (f *fakeCounterService) Delete(ctx context.Context, id string) error { return f.err }

type fakeTicketService struct {
	err        error
	transition ticket.TransitionRequest
	issuedBy   *jwt.Actor
	calledOn   string
}

func (f *fakeTicketService) Issue(ctx context.Context, req ticket.IssueTicketRequest) (ticket.TicketResponse, error) {
	if actor, err := jwt.ActorFromContext(ctx); err == nil {
		f.issuedBy = &actor
	}
	if f.err != nil {
		return ticket.TicketResponse{}, f.err
	}
	return ticket.TicketResponse{CounterID: req.CounterID, QueueNumber: "A-001", Status: ticket.StatusWaiting}, nil
}

func (f *fakeTicketService) Transition(ctx context.Context, req ticket.TransitionRequest) (ticket.TicketResponse, error) {
	f.transition = req
	if f.err != nil {
		return ticket.TicketResponse{}, f.err
	}
	return ticket.TicketResponse{ID: req.TicketID, Status: ticket.StatusCancelled}, nil
}

func (f *fakeTicketService) CallNext(ctx context.Context, counterID string) (ticket.TicketResponse, error) {
	f.calledOn = counterID
	if f.err != nil {
		return ticket.TicketResponse{}, f.err
	}
	return ticket.TicketResponse{CounterID: counterID, Status: ticket.StatusCalling}, nil
}

func (f *fakeTicketService) Get(ctx context.Context, id string) (ticket.TicketResponse, error) {
	return ticket.TicketResponse{ID: id}, f.err
}

func (f *fakeTicketService) List(ctx context.Context, filter ticket.TicketFilter) (ticket.ListTicketResponse, error) {
	return ticket.ListTicketResponse{Page: 1, Limit: 20, Tickets: []ticket.TicketResponse{}}, f.err
}

func (f *fakeTicketService) ListMine(ctx context.Context, filter ticket.TicketFilter) (ticket.ListTicketResponse, error) {
	return ticket.ListTicketResponse{Page: 1, Limit: 20, Tickets: []ticket.TicketResponse{}}, f.err
}

func (f *fakeTicketService) Events(ctx context.Context, ticketID string) ([]ticket.EventResponse, error) {
	return []ticket.EventResponse{}, f.err
}

func (f *fakeTicketService) Track(ctx context.Context, trackingCode string) (ticket.TrackResponse, error) {
	if f.err != nil {
		return ticket.TrackResponse{}, f.err
	}
	return ticket.TrackResponse{QueueNumber: "A-002", Status: ticket.StatusWaiting, Ahead: 1, EstimatedWaitSeconds: 300}, nil
}

func (f *fakeTicketService) Board(ctx context.Context, locationID string) (ticket.BoardResponse, error) {
	return ticket.BoardResponse{LocationID: locationID, Counters: []ticket.BoardCounter{}}, f.err
}

type fakeSummaryService struct {
	err error
	req summary.RecomputeRequest
}

func (f *fakeSummaryService) Recompute(ctx context.Context, req summary.RecomputeRequest) (summary.RecomputeResponse, error) {
	f.req = req
	return summary.RecomputeResponse{From: req.From, To: req.To, RowsWritten: 4}, f.err
}

func (f *fakeSummaryService) RecomputeRange(ctx context.Context, from, to time.Time, locationID *string) (int64, error) {
	return 0, f.err
}

func (f *fakeSummaryService) RefreshCounter(ctx context.Context, locationID, counterID string, serviceDate time.Time) error {
	return f.err
}

func (f *fakeSummaryService) List(ctx context.Context, filter summary.SummaryFilter) (summary.ListSummaryResponse, error) {
	return summary.ListSummaryResponse{Page: 1, Limit: 20, Summaries: []summary.SummaryResponse{}}, f.err
}

type fakeDashboardService struct {
	filter dashboard.DashboardFilter
}

func (f *fakeDashboardService) GetDashboard(ctx context.Context, filter dashboard.DashboardFilter) (dashboard.DashboardResponse, error) {
	f.filter = filter
	return dashboard.DashboardResponse{From: filter.From, To: filter.To}, nil
}

type fakeTotals struct{}

func (fakeTotals) Totals(ctx context.Context) (int64, int64, error) { return 10, 2, nil }
