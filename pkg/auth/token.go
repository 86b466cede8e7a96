package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danraniery/sgm/pkg/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Default token lifetimes
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour

	// Token kinds carried in the typ claim.
	KindAccess  = "access"
	KindRefresh = "refresh"

	// MinSecretLength is the shortest signing key accepted for HS512.
	MinSecretLength = 32
)

// ErrSecretTooShort is returned when the signing key is shorter than MinSecretLength.
var ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)

// TokenConfig holds token configuration.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AccountReader resolves the live state and authorities of a token subject.
type AccountReader interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Authorities(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// Claims represents the claims in access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Authorities string `json:"auth,omitempty"`
	Kind        string `json:"typ"`
}

// AuthorityList splits the comma-joined auth claim.
func (c *Claims) AuthorityList() []string {
	if c.Authorities == "" {
		return []string{}
	}
	return strings.Split(c.Authorities, ",")
}

// TokenService issues and validates stateless HS512 tokens.
// The signing key is copied on construction and never changes afterwards.
type TokenService struct {
	secret   []byte
	issuer   string
	access   time.Duration
	refresh  time.Duration
	accounts AccountReader
	tracker  *AttemptTracker
	now      func() time.Time
}

// NewTokenService creates a token service. tracker may be nil, in which case
// any locked account is rejected at verification time.
func NewTokenService(cfg TokenConfig, accounts AccountReader, tracker *AttemptTracker) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return &TokenService{
		secret:   append([]byte(nil), cfg.Secret...),
		issuer:   cfg.Issuer,
		access:   cfg.AccessTokenTTL,
		refresh:  cfg.RefreshTokenTTL,
		accounts: accounts,
		tracker:  tracker,
		now:      time.Now,
	}, nil
}

// AccessTokenTTL returns the access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.access
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.refresh
}

// IssueAccessToken signs an access token carrying subject and authorities.
func (s *TokenService) IssueAccessToken(subject string, authorities []string) (string, error) {
	return s.sign(subject, KindAccess, strings.Join(authorities, ","), s.access)
}

// IssueRefreshToken signs a refresh token carrying only the subject.
func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return s.sign(subject, KindRefresh, "", s.refresh)
}

// IssueAccessTokenFromRefresh mints a new access token from a valid refresh token.
// Authorities are read from the store, never from the refresh token.
func (s *TokenService) IssueAccessTokenFromRefresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.ParseClaims(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.Kind != KindRefresh {
		return "", domain.ErrInvalidToken
	}

	acc, err := s.liveAccount(ctx, claims.Subject)
	if err != nil {
		return "", err
	}

	authorities, err := s.accounts.Authorities(ctx, acc.ID)
	if err != nil {
		return "", fmt.Errorf("resolve authorities: %w", err)
	}

	return s.IssueAccessToken(acc.Username, authorities)
}

// VerifyAccessToken validates an access token and re-checks the account state.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := s.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindAccess {
		return nil, domain.ErrInvalidToken
	}

	if _, err := s.liveAccount(ctx, claims.Subject); err != nil {
		return nil, err
	}

	return &domain.Principal{
		Username:    claims.Subject,
		Authorities: claims.AuthorityList(),
	}, nil
}

// ParseClaims verifies signature and expiry and returns the claims.
// Expired tokens map to ErrExpiredCredentials; anything else to ErrInvalidToken.
func (s *TokenService) ParseClaims(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredCredentials
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) sign(subject, kind, authorities string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Authorities: authorities,
		Kind:        kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// liveAccount loads the subject and rejects inactive or locked accounts.
func (s *TokenService) liveAccount(ctx context.Context, username string) (*domain.Account, error) {
	acc, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !acc.Active {
		return nil, domain.ErrAccountNotActivated
	}
	if acc.Locked {
		if s.tracker == nil {
			return nil, domain.ErrAccountLocked
		}
		// Evaluate the lazy unlock on a copy; verification never writes.
		if _, err := s.tracker.CheckUnlock(acc.Clone()); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
