package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/domain/auth"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessExp  = "1h"
	testRefreshExp = "24h"
	testSecret     = "test-secret-key-for-jwt"
)

type fakeTx struct{}

func (fakeTx) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]user.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]user.User{}}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return user.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, newUser user.User) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == newUser.Email {
			return user.User{}, user.ErrUserEmailExists
		}
	}
	f.seq++
	newUser.ID = fmt.Sprintf("user-%d", f.seq)
	newUser.CreatedAt = time.Now()
	newUser.UpdatedAt = newUser.CreatedAt
	f.users[newUser.ID] = newUser
	return newUser, nil
}

func (f *fakeUserRepo) LinkGoogleAccount(ctx context.Context, googleID string, email string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Email == email {
			provider := "google"
			u.OAuthProvider = &provider
			u.OAuthProviderID = &googleID
			f.users[id] = u
			return u, nil
		}
	}
	return user.User{}, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListByLocation(ctx context.Context, locationID string) ([]user.User, error) {
	return nil, nil
}

type fakeJWTRepo struct {
	mu      sync.Mutex
	tokens  map[string]bool // token -> revoked
	owners  map[string]string
	session map[string]auth.SessionTrackingRequest
}

func newFakeJWTRepo() *fakeJWTRepo {
	return &fakeJWTRepo{
		tokens:  map[string]bool{},
		owners:  map[string]string{},
		session: map[string]auth.SessionTrackingRequest{},
	}
}

func (f *fakeJWTRepo) CreateRefreshToken(ctx context.Context, userID string, token string, expiresAt int64, session auth.SessionTrackingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = false
	f.owners[token] = userID
	f.session[token] = session
	return nil
}

func (f *fakeJWTRepo) IsRefreshTokenRevoked(ctx context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	revoked, ok := f.tokens[token]
	return !ok || revoked, nil
}

func (f *fakeJWTRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = true
	return nil
}

func (f *fakeJWTRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, owner := range f.owners {
		if owner == userID {
			f.tokens[token] = true
		}
	}
	return nil
}

func (f *fakeJWTRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestAuthService() (*AuthServiceImpl, *fakeUserRepo, *fakeJWTRepo) {
	users := newFakeUserRepo()
	tokens := newFakeJWTRepo()
	jwtService := jwt.NewJWTService(testSecret, testAccessExp, testRefreshExp, false)
	svc := NewAuthService(fakeTx{}, users, jwtService, tokens).(*AuthServiceImpl)
	return svc, users, tokens
}

func registerRequest(email string) auth.RegisterRequest {
	return auth.RegisterRequest{
		Email:           email,
		FullName:        "Test User",
		Password:        "password123",
		ConfirmPassword: "password123",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	session := auth.SessionTrackingRequest{UserAgent: "test-agent", IPAddress: "127.0.0.1"}

	t.Run("creates visitor and stores refresh token", func(t *testing.T) {
		svc, users, tokens := newTestAuthService()

		resp, err := svc.Register(ctx, registerRequest("visitor@example.com"), session)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Greater(t, resp.RefreshTokenExpiresIn, resp.AccessTokenExpiresIn)

		created, err := users.GetByEmail(ctx, "visitor@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleVisitor, created.Role)
		require.NotNil(t, created.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*created.PasswordHash), []byte("password123")))

		assert.Equal(t, session, tokens.session[resp.RefreshToken])
	})

	t.Run("owner account type", func(t *testing.T) {
		svc, users, _ := newTestAuthService()
		req := registerRequest("owner@example.com")
		req.AccountType = "owner"

		_, err := svc.Register(ctx, req, session)
		require.NoError(t, err)

		created, err := users.GetByEmail(ctx, "owner@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleOwner, created.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, _, _ := newTestAuthService()
		_, err := svc.Register(ctx, registerRequest("dup@example.com"), session)
		require.NoError(t, err)

		_, err = svc.Register(ctx, registerRequest("dup@example.com"), session)
		assert.ErrorIs(t, err, auth.ErrEmailAlreadyExists)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	session := auth.SessionTrackingRequest{}

	svc, users, _ := newTestAuthService()
	_, err := svc.Register(ctx, registerRequest("login@example.com"), session)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginRequest{Email: "login@example.com", Password: "password123"}, session)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginRequest{Email: "login@example.com", Password: "wrongpassword"}, session)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginRequest{Email: "nobody@example.com", Password: "password123"}, session)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("google-only account", func(t *testing.T) {
		provider := "google"
		googleID := "g-1"
		_, err := users.Create(ctx, user.User{Email: "google@example.com", FullName: "G", Role: user.RoleVisitor, OAuthProvider: &provider, OAuthProviderID: &googleID})
		require.NoError(t, err)

		_, err = svc.Login(ctx, auth.LoginRequest{Email: "google@example.com", Password: "password123"}, session)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestLoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	session := auth.SessionTrackingRequest{}

	t.Run("creates visitor when missing", func(t *testing.T) {
		svc, users, _ := newTestAuthService()

		resp, err := svc.LoginWithGoogle(ctx, "new@example.com", "google-123", "New Visitor", session)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)

		created, err := users.GetByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleVisitor, created.Role)
		assert.Equal(t, "New Visitor", created.FullName)
		assert.Nil(t, created.PasswordHash)
		require.NotNil(t, created.OAuthProviderID)
		assert.Equal(t, "google-123", *created.OAuthProviderID)
	})

	t.Run("links existing password account", func(t *testing.T) {
		svc, users, _ := newTestAuthService()
		_, err := svc.Register(ctx, registerRequest("link@example.com"), session)
		require.NoError(t, err)

		_, err = svc.LoginWithGoogle(ctx, "link@example.com", "google-456", "", session)
		require.NoError(t, err)

		linked, err := users.GetByEmail(ctx, "link@example.com")
		require.NoError(t, err)
		require.NotNil(t, linked.OAuthProvider)
		assert.Equal(t, "google", *linked.OAuthProvider)
		assert.NotNil(t, linked.PasswordHash)
	})
}

func TestRefreshTokenAndLogout(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestAuthService()

	tokens, err := svc.Register(ctx, registerRequest("refresh@example.com"), auth.SessionTrackingRequest{})
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		resp, err := svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("access token is rejected", func(t *testing.T) {
		_, err := svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: "not-a-jwt"})
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("revoked after logout", func(t *testing.T) {
		require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))
		// second logout is a no-op
		require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))

		_, err := svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
		assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)
	})
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	svc, users, tokens := newTestAuthService()

	first, err := svc.Register(ctx, registerRequest("everywhere@example.com"), auth.SessionTrackingRequest{UserAgent: "laptop"})
	require.NoError(t, err)
	other, err := svc.Register(ctx, registerRequest("bystander@example.com"), auth.SessionTrackingRequest{})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.LogoutAll(ctx), auth.ErrUnauthenticated)

	u, err := users.GetByEmail(ctx, "everywhere@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.LogoutAll(jwt.WithActor(ctx, jwt.Actor{UserID: u.ID, Email: u.Email, Role: u.Role})))

	_, err = svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)

	revoked, err := tokens.IsRefreshTokenRevoked(ctx, other.RefreshToken)
	require.NoError(t, err)
	assert.False(t, revoked, "other users keep their sessions")
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestAuthService()

	created, err := users.Create(ctx, user.User{Email: "me@example.com", FullName: "Me", Role: user.RoleOwner})
	require.NoError(t, err)

	_, err = svc.Me(ctx)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	actorCtx := jwt.WithActor(ctx, jwt.Actor{UserID: created.ID, Email: created.Email, Role: created.Role})
	resp, err := svc.Me(actorCtx)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", resp.Email)
	assert.Equal(t, "owner", resp.Role)
}
