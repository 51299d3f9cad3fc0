package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
	"github.com/waitless/waitless-backend-go/internal/config"
	appHTTP "github.com/waitless/waitless-backend-go/internal/handler/http"
	"github.com/waitless/waitless-backend-go/internal/handler/http/middleware"
	"github.com/waitless/waitless-backend-go/internal/pkg/cron"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
	"github.com/waitless/waitless-backend-go/internal/pkg/oauth"
	"github.com/waitless/waitless-backend-go/internal/pkg/ratelimit"
	"github.com/waitless/waitless-backend-go/internal/pkg/sse"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/waitless/waitless-backend-go/internal/service/auth"
	counterService "github.com/waitless/waitless-backend-go/internal/service/counter"
	dashboardService "github.com/waitless/waitless-backend-go/internal/service/dashboard"
	locationService "github.com/waitless/waitless-backend-go/internal/service/location"
	summaryService "github.com/waitless/waitless-backend-go/internal/service/summary"
	ticketService "github.com/waitless/waitless-backend-go/internal/service/ticket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "waitless"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis only backs rate limit statistics; the limiter itself is in-process.
	var (
		stats  ratelimit.StatsRecorder
		totals appHTTP.RateLimitTotals
	)
	if addr := cfg.RedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("Redis unavailable, rate limit stats disabled", "addr", addr, "error", err)
		} else {
			redisStats := ratelimit.NewRedisStats(rdb, cfg.RateLimit.StatsPrefix, 48*time.Hour)
			stats = redisStats
			totals = redisStats
		}
		cancel()
	}

	userRepo := postgresql.NewUserRepository(db)
	JWTRepository := postgresql.NewJWTRepository(db)
	locationRepo := postgresql.NewLocationRepository(db)
	counterRepo := postgresql.NewCounterRepository(db)
	ticketRepo := postgresql.NewTicketRepository(db)
	sequenceRepo := postgresql.NewSequenceRepository(db)
	eventRepo := postgresql.NewEventRepository(db)
	summaryRepo := postgresql.NewSummaryRepository(db)
	dashboardRepo := postgresql.NewDashboardRepository(db)
	tx := postgresql.NewTransactor(db)

	hub := sse.NewHub()
	limiter := ratelimit.NewStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.RefreshExpiration, cfg.App.Env == "production")
	var GoogleService oauth.GoogleService
	if cfg.OAuth2Google.Enabled() {
		GoogleService = oauth.NewGoogleService(cfg.OAuth2Google.ClientID, cfg.OAuth2Google.ClientSecret, cfg.OAuth2Google.RedirectURL, cfg.OAuth2Google.Scopes)
	} else {
		slog.Info("Google sign-in disabled")
	}

	authService := serviceAuth.NewAuthService(tx, userRepo, JWTService, JWTRepository)
	locationSvc := locationService.NewLocationService(tx, locationRepo, counterRepo, userRepo, ticketRepo)
	counterSvc := counterService.NewCounterService(counterRepo, locationRepo)
	summarySvc := summaryService.NewSummaryService(tx, summaryRepo, locationRepo)
	ticketSvc := ticketService.NewTicketService(
		tx,
		ticketRepo,
		sequenceRepo,
		eventRepo,
		counterRepo,
		locationRepo,
		summarySvc,
		hub,
	)
	dashboardSvc := dashboardService.NewDashboardService(dashboardRepo, locationRepo)

	handlers := appHTTP.Handlers{
		Auth:      appHTTP.NewAuthHandler(JWTService, authService, GoogleService, cfg.App.FrontendURL, cfg.App.Env == "production"),
		Location:  appHTTP.NewLocationHandler(locationSvc),
		Counter:   appHTTP.NewCounterHandler(counterSvc),
		Ticket:    appHTTP.NewTicketHandler(ticketSvc),
		Public:    appHTTP.NewPublicHandler(locationSvc, ticketSvc, hub),
		Summary:   appHTTP.NewSummaryHandler(summarySvc),
		Dashboard: appHTTP.NewDashboardHandler(dashboardSvc),
		Admin:     appHTTP.NewAdminHandler(limiter, totals, hub),
	}

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:         logger,
		AllowedOrigins: cfg.App.AllowedOrigins,
		JWTService:     JWTService,
		RateLimit: middleware.RateLimitOptions{
			Store:    limiter,
			TrustXFF: cfg.RateLimit.TrustXFF,
			Stats:    stats,
		},
	}, handlers)

	scheduler := cron.NewScheduler()
	cron.NewSummaryJobs(summarySvc, cfg.Summary.Interval).RegisterJobs(scheduler)
	scheduler.AddJob("purge_expired_refresh_tokens", 6*time.Hour, func(ctx context.Context) error {
		n, err := JWTRepository.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			return err
		}
		slog.Debug("Cron: purged refresh tokens", "count", n)
		return nil
	})
	scheduler.Start(ctx)
	limiter.StartJanitor(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Open event streams would otherwise hold Shutdown until its deadline.
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	scheduler.Stop()
}
