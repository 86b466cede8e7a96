package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/go-chi/httprate"
)

// Rate limiter groups.
const (
	LimitAuth    = "auth"
	LimitRefresh = "refresh"
	LimitAPI     = "api"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	Logger     *slog.Logger
	Translator *i18n.Translator
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	tr := cfg.Translator
	if tr == nil {
		tr = i18n.New(i18n.LocalePtBR)
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, r, tr, http.StatusTooManyRequests, i18n.KeyRateLimited)
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
// Groups with a non-positive budget are left unlimited.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger, tr *i18n.Translator) map[string]func(http.Handler) http.Handler {
	limiters := map[string]func(http.Handler) http.Handler{
		LimitAuth:    NoRateLimit(),
		LimitRefresh: NoRateLimit(),
		LimitAPI:     NoRateLimit(),
	}
	if !cfg.Enabled {
		return limiters
	}

	groups := map[string]struct {
		requests int
		window   time.Duration
	}{
		LimitAuth:    {cfg.AuthRequests, cfg.AuthWindow},
		LimitRefresh: {cfg.RefreshRequests, cfg.RefreshWindow},
		LimitAPI:     {cfg.APIRequests, cfg.APIWindow},
	}
	for name, g := range groups {
		if g.requests <= 0 || g.window <= 0 {
			continue
		}
		limiters[name] = RateLimit(RateLimitConfig{
			Requests:   g.requests,
			Window:     g.window,
			Logger:     logger,
			Translator: tr,
		})
	}
	return limiters
}
