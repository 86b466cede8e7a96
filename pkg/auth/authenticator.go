package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
)

// AccountStore is the persistence collaborator of the authenticator.
// Save must reject stale writes with domain.ErrConcurrentUpdate.
type AccountStore interface {
	AccountReader
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Save(ctx context.Context, acc *domain.Account) error
}

// Events receives security events. Implementations must be safe for concurrent use.
type Events interface {
	LoginSucceeded()
	LoginFailed(reason string)
	AccountLocked()
	AccountUnlocked()
	PasswordChanged()
}

type noopEvents struct{}

func (noopEvents) LoginSucceeded()    {}
func (noopEvents) LoginFailed(string) {}
func (noopEvents) AccountLocked()     {}
func (noopEvents) AccountUnlocked()   {}
func (noopEvents) PasswordChanged()   {}

// AuthenticatorConfig holds optional collaborators. Zero values are replaced by defaults.
type AuthenticatorConfig struct {
	MaxRetries int
	Locker     AccountLocker
	Logger     *slog.Logger
	Events     Events
}

// Authenticator orchestrates login, token refresh and password change.
type Authenticator struct {
	store   AccountStore
	policy  *PasswordPolicy
	tracker *AttemptTracker
	tokens  *TokenService
	hasher  Hasher
	mut     *mutator
	logger  *slog.Logger
	events  Events
	now     func() time.Time
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(
	store AccountStore,
	policy *PasswordPolicy,
	tracker *AttemptTracker,
	tokens *TokenService,
	hasher Hasher,
	cfg AuthenticatorConfig,
) *Authenticator {
	a := &Authenticator{
		store:   store,
		policy:  policy,
		tracker: tracker,
		tokens:  tokens,
		hasher:  hasher,
		logger:  cfg.Logger,
		events:  cfg.Events,
		now:     time.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.mut = newMutator(store, cfg.Locker, cfg.MaxRetries, a.logger)
	if a.events == nil {
		a.events = noopEvents{}
	}
	return a
}

// Login authenticates username and password and issues a token pair.
//
// Unknown usernames yield ErrUnauthorized without creating any tracking state.
// A locked account whose window has elapsed is unlocked and persisted before
// the password is checked. The failure that locks an account yields
// ErrAttemptsExceeded instead of ErrUnauthorized.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	username = domain.NormalizeUsername(username)

	found, err := a.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			a.events.LoginFailed("unknown_user")
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	acc, err := a.mut.mutate(ctx, found.ID, func(acc *domain.Account) (bool, error) {
		unlocked, err := a.tracker.CheckUnlock(acc)
		if err != nil {
			return false, err
		}
		if unlocked {
			a.logger.Info("account unlocked after attempt window", "username", acc.Username, "account_id", acc.ID)
			a.events.AccountUnlocked()
		}

		if !acc.Active {
			return unlocked, domain.ErrAccountNotActivated
		}

		if !a.hasher.Verify(password, acc.PasswordHash) {
			if a.tracker.RecordFailure(acc) {
				a.logger.Warn("account locked after failed attempts",
					"username", acc.Username, "account_id", acc.ID, "attempts", acc.FailedAttemptCount)
				a.events.AccountLocked()
				return true, domain.ErrAttemptsExceeded
			}
			return unlocked || !acc.Privileged, domain.ErrUnauthorized
		}

		reset := a.tracker.RecordSuccess(acc)
		return unlocked || reset, nil
	})
	if errors.Is(err, domain.ErrAccountNotFound) {
		err = domain.ErrUnauthorized
	}
	if err != nil {
		a.logLoginFailure(username, err)
		return nil, err
	}

	authorities, err := a.store.Authorities(ctx, acc.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve authorities: %w", err)
	}

	pair, err := a.issuePair(acc.Username, authorities)
	if err != nil {
		return nil, err
	}

	a.events.LoginSucceeded()
	a.logger.Info("login succeeded", "username", acc.Username, "account_id", acc.ID)
	return pair, nil
}

// Refresh issues a new access token from a refresh token.
// The refresh token is returned unchanged.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	access, err := a.tokens.IssueAccessTokenFromRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return a.pair(access, refreshToken), nil
}

// ChangePassword validates and stores a new password for the account.
// Validation order: complexity, reuse against history, confirmation.
func (a *Authenticator) ChangePassword(ctx context.Context, accountID uuid.UUID, password, confirmation string) (*domain.Account, error) {
	acc, err := a.mut.mutate(ctx, accountID, func(acc *domain.Account) (bool, error) {
		if err := a.policy.Validate(false, password, confirmation, acc.PasswordHistory); err != nil {
			return false, err
		}

		hash, err := a.hasher.Hash(password)
		if err != nil {
			return false, fmt.Errorf("hash password: %w", err)
		}

		now := a.now()
		acc.PasswordHash = hash
		acc.PasswordHistory = RecordNewPassword(acc.PasswordHistory, hash, a.policy.HistoryLimit)
		acc.LastPasswordChangeAt = &now
		acc.FailedAttemptCount = 0
		acc.LastFailedAttemptAt = nil
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	a.events.PasswordChanged()
	a.logger.Info("password changed", "username", acc.Username, "account_id", acc.ID)
	return acc, nil
}

// Account returns the account of an authenticated principal.
func (a *Authenticator) Account(ctx context.Context, username string) (*domain.Account, error) {
	acc, err := a.store.GetByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// PasswordMaxAge returns the age after which a password change is requested.
func (a *Authenticator) PasswordMaxAge() time.Duration {
	return a.policy.MaxAge
}

func (a *Authenticator) issuePair(username string, authorities []string) (*domain.TokenPair, error) {
	access, err := a.tokens.IssueAccessToken(username, authorities)
	if err != nil {
		return nil, err
	}
	refresh, err := a.tokens.IssueRefreshToken(username)
	if err != nil {
		return nil, err
	}
	return a.pair(access, refresh), nil
}

func (a *Authenticator) pair(access, refresh string) *domain.TokenPair {
	ttl := a.tokens.AccessTokenTTL()
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(ttl.Seconds()),
		ExpiresAt:    a.now().Add(ttl),
	}
}

func (a *Authenticator) logLoginFailure(username string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		a.events.LoginFailed("bad_credentials")
		a.logger.Info("login failed", "username", username)
	case errors.Is(err, domain.ErrAttemptsExceeded):
		a.events.LoginFailed("attempts_exceeded")
	case errors.Is(err, domain.ErrAccountLocked):
		a.events.LoginFailed("locked")
		a.logger.Warn("login rejected for locked account", "username", username)
	case errors.Is(err, domain.ErrAccountNotActivated):
		a.events.LoginFailed("not_activated")
		a.logger.Info("login rejected for inactive account", "username", username)
	default:
		a.events.LoginFailed("error")
		a.logger.Error("login failed", "username", username, "error", err)
	}
}
