package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/pkg/domain"
)

type contextKey string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKey = "principal"

// TokenVerifier validates access tokens against the live account state.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*domain.Principal, error)
}

// Auth creates middleware that validates bearer access tokens.
func Auth(verifier TokenVerifier, tr *i18n.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				httputil.WriteError(w, r, tr, domain.ErrInvalidToken)
				return
			}

			principal, err := verifier.VerifyAccessToken(r.Context(), tokenString)
			if err != nil {
				httputil.WriteError(w, r, tr, err)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyRole rejects principals holding none of the given roles.
// Must be used after Auth.
func RequireAnyRole(tr *i18n.Translator, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				httputil.WriteError(w, r, tr, domain.ErrInvalidToken)
				return
			}
			if !principal.HasAnyAuthority(roles...) {
				httputil.Error(w, r, tr, http.StatusForbidden, domain.KeyAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetPrincipal extracts the principal from the request context.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal, ok
}

// WithPrincipal returns a copy of ctx carrying principal.
func WithPrincipal(ctx context.Context, principal *domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
