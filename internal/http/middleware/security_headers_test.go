package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danraniery/sgm/internal/config"
	"github.com/stretchr/testify/assert"
)

func serveWithHeaders(cfg config.SecurityHeadersConfig) http.Header {
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/account", nil))
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	h := serveWithHeaders(config.SecurityHeadersConfig{
		Enabled:            true,
		CSP:                "default-src 'none'",
		HSTSMaxAge:         31536000,
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "0",
		ReferrerPolicy:     "no-referrer",
		PermissionsPolicy:  "geolocation=()",
	})

	want := map[string]string{
		"Content-Security-Policy":   "default-src 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"X-XSS-Protection":          "0",
		"Referrer-Policy":           "no-referrer",
		"Permissions-Policy":        "geolocation=()",
		"Cache-Control":             "no-store",
	}
	for name, value := range want {
		assert.Equal(t, value, h.Get(name), name)
	}
}

func TestSecurityHeaders_Disabled(t *testing.T) {
	h := serveWithHeaders(config.SecurityHeadersConfig{Enabled: false, CSP: "default-src 'none'"})

	assert.Empty(t, h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Cache-Control"))
}

func TestSecurityHeaders_EmptyValuesSkipped(t *testing.T) {
	h := serveWithHeaders(config.SecurityHeadersConfig{Enabled: true})

	assert.Empty(t, h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
	assert.Empty(t, h.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
}
