package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/internal/http/features/account"
	"github.com/danraniery/sgm/internal/http/features/authenticate"
	"github.com/danraniery/sgm/internal/http/features/roles"
	"github.com/danraniery/sgm/internal/http/features/users"
	"github.com/danraniery/sgm/internal/http/middleware"
	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/internal/metrics"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ProfileReader resolves profiles for account and user responses.
type ProfileReader interface {
	account.Profiles
	users.Profiles
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Translator      *i18n.Translator
	Metrics         *metrics.Metrics
	Authenticator   authenticate.Service
	Accounts        account.Service
	Users           users.Service
	Profiles        ProfileReader
	Tokens          middleware.TokenVerifier
	DB              Pinger
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	MaxBodySize     int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.DB.PingContext(ctx); err != nil {
				cfg.Logger.Error("health check failed", "error", err)
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimit, cfg.Logger, cfg.Translator)

	authHandler := authenticate.NewHandler(cfg.Logger, cfg.Authenticator, cfg.Translator)
	r.With(rateLimiters[middleware.LimitAuth]).Post("/api/authenticate", authHandler.Login)
	r.With(rateLimiters[middleware.LimitRefresh]).Post("/api/authenticate/refresh", authHandler.Refresh)

	accountHandler := account.NewHandler(cfg.Logger, cfg.Accounts, cfg.Profiles, cfg.Translator)
	usersHandler := users.NewHandler(cfg.Logger, cfg.Users, cfg.Profiles, cfg.Translator)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimitAPI])
		r.Use(middleware.Auth(cfg.Tokens, cfg.Translator))

		r.Get("/api/account", accountHandler.GetAccount)
		r.Patch("/api/account/change-password", accountHandler.ChangePassword)
		r.Get("/api/roles", roles.List)

		r.Route("/api/users", func(r chi.Router) {
			r.With(middleware.RequireAnyRole(cfg.Translator, domain.RoleAuditor, domain.RoleUserManagement)).
				Get("/", usersHandler.List)
			r.With(middleware.RequireAnyRole(cfg.Translator, domain.RoleAuditor, domain.RoleUserManagement)).
				Get("/{id}", usersHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(cfg.Translator, domain.RoleUserManagement))
				r.Post("/", usersHandler.Create)
				r.Delete("/{id}/logic", usersHandler.ToggleStatus)
				r.Patch("/{id}/lock", usersHandler.ToggleLock)
			})
		})
	})

	return r
}
