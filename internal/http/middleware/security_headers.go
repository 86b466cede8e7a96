package middleware

import (
	"net/http"
	"strconv"

	"github.com/danraniery/sgm/internal/config"
)

type header struct {
	name, value string
}

// SecurityHeaders sets the configured response security headers.
// Empty settings are skipped. Every response is marked no-store since API
// payloads carry credentials and account state.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := securityHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, hd := range headers {
				h.Set(hd.name, hd.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeaders(cfg config.SecurityHeadersConfig) []header {
	candidates := []header{
		{"Content-Security-Policy", cfg.CSP},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"X-XSS-Protection", cfg.XSSProtection},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cache-Control", "no-store"},
	}
	if cfg.HSTSMaxAge > 0 {
		candidates = append(candidates, header{
			"Strict-Transport-Security", "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains",
		})
	}

	headers := candidates[:0]
	for _, hd := range candidates {
		if hd.value != "" {
			headers = append(headers, hd)
		}
	}
	return headers
}
