package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/handler/http/middleware"
	"github.com/waitless/waitless-backend-go/internal/pkg/jwt"
)

// Handlers groups every handler mounted by NewRouter.
type Handlers struct {
	Auth      AuthHandler
	Location  LocationHandler
	Counter   CounterHandler
	Ticket    TicketHandler
	Public    PublicHandler
	Summary   SummaryHandler
	Dashboard DashboardHandler
	Admin     AdminHandler
}

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	JWTService     jwt.Service
	RateLimit      middleware.RateLimitOptions
}

// transitionActions matches the operator actions accepted on a ticket.
const transitionActions = "{action:call|recall|serve|hold|done|cancel}"

func NewRouter(cfg RouterConfig, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	ja := cfg.JWTService.JWTAuth()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		r.Use(httplog.RequestLogger(cfg.Logger, &httplog.Options{
			Level:  slog.LevelInfo,
			Schema: httplog.SchemaECS,
		}))
	}

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/refresh", h.Auth.RefreshToken)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/oauth/callback/google", h.Auth.OAuthCallbackGoogle)

			r.Route("/login", func(r chi.Router) {
				r.Post("/", h.Auth.Login)
				r.Get("/oauth/google", h.Auth.LoginWithGoogle)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(ja))
				r.Use(middleware.AuthRequired)
				r.Get("/me", h.Auth.Me)
				r.Post("/logout-all", h.Auth.LogoutAll)
			})
		})

		// Kiosks, display screens and anonymous visitors
		r.Route("/public", func(r chi.Router) {
			r.Route("/locations/{id}", func(r chi.Router) {
				r.Get("/", h.Public.GetLocation)
				r.Get("/board", h.Public.Board)
				r.Get("/stream", h.Public.Stream)
			})
			r.Get("/tickets/{code}", h.Public.Track)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.RateLimit))
				r.Use(jwtauth.Verifier(ja))
				r.Use(middleware.OptionalAuth)
				r.Post("/tickets", h.Public.Issue)
			})
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(ja))
			r.Use(middleware.AuthRequired)

			r.Route("/locations", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionLocationView)).Get("/", h.Location.List)
				r.With(middleware.RequirePermission(user.PermissionLocationManage)).Post("/", h.Location.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Location.Get)
					r.Get("/counters", h.Counter.ListByLocation)

					// Owner / admin
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionLocationManage))
						r.Patch("/", h.Location.Update)
						r.Delete("/", h.Location.Delete)
						r.With(middleware.RequirePermission(user.PermissionCounterManage)).Post("/counters", h.Counter.Create)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionStaffManage))
						r.Get("/staff", h.Location.ListStaff)
						r.Post("/staff", h.Location.CreateStaff)
					})
				})
			})

			r.Route("/counters/{counterID}", func(r chi.Router) {
				r.Get("/", h.Counter.Get)
				r.With(middleware.RequirePermission(user.PermissionTicketOperate)).Post("/call-next", h.Ticket.CallNext)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionCounterManage))
					r.Patch("/", h.Counter.Update)
					r.Delete("/", h.Counter.Delete)
				})
			})

			r.Route("/tickets", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionTicketCreate)).Post("/", h.Ticket.Issue)
				r.With(middleware.RequirePermission(user.PermissionTicketViewAll)).Get("/", h.Ticket.List)
				r.With(middleware.RequirePermission(user.PermissionTicketViewOwn)).Get("/my", h.Ticket.ListMine)

				r.Route("/{ticketID}", func(r chi.Router) {
					r.Get("/", h.Ticket.Get)
					r.Get("/events", h.Ticket.Events)
					// Visitors may cancel their own tickets; the service checks the rest
					r.Post("/"+transitionActions, h.Ticket.Transition)
				})
			})

			r.Route("/summaries", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionReportsView))
				r.Get("/", h.Summary.List)
				r.Post("/recompute", h.Summary.Recompute)
			})

			r.With(middleware.RequirePermission(user.PermissionReportsView)).Get("/dashboard", h.Dashboard.GetDashboard)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/stats", h.Admin.RuntimeStats)
			})
		})
	})
	return r
}
