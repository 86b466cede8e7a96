package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
)

// Field limits for account administration.
const (
	UsernameMinLength = 2
	UsernameMaxLength = 256
	NameMinLength     = 2
	NameMaxLength     = 100
)

// AccountRepository extends AccountStore with creation and listing.
type AccountRepository interface {
	AccountStore
	Create(ctx context.Context, acc *domain.Account) error
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
}

// CreateAccountInput holds the data for a new account.
type CreateAccountInput struct {
	Username        string
	Name            string
	Password        string
	ConfirmPassword string
	ProfileID       *uuid.UUID
	Active          bool
}

// AccountService handles account administration.
type AccountService struct {
	repo    AccountRepository
	policy  *PasswordPolicy
	tracker *AttemptTracker
	hasher  Hasher
	mut     *mutator
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(repo AccountRepository, policy *PasswordPolicy, tracker *AttemptTracker, hasher Hasher, cfg AuthenticatorConfig) *AccountService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		repo:    repo,
		policy:  policy,
		tracker: tracker,
		hasher:  hasher,
		mut:     newMutator(repo, cfg.Locker, cfg.MaxRetries, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Create registers a new, non-privileged account.
// The password change date is left empty so the user is asked to replace it.
func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (*domain.Account, error) {
	username := domain.NormalizeUsername(in.Username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	name := SanitizeName(in.Name)
	if err := ValidateStringLength("name", name, NameMinLength, NameMaxLength); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidName, err)
	}

	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return nil, domain.ErrUsernameTaken
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	if err := s.policy.Validate(true, in.Password, in.ConfirmPassword, nil); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	acc := &domain.Account{
		ID:              uuid.New(),
		Username:        username,
		Name:            name,
		PasswordHash:    hash,
		PasswordHistory: RecordNewPassword(nil, hash, s.policy.HistoryLimit),
		Active:          in.Active,
		ProfileID:       in.ProfileID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("account created", "username", acc.Username, "account_id", acc.ID)
	return acc, nil
}

// EnsureSystemAdmin seeds the privileged system account when it is missing.
// It reports whether the account was created.
func (s *AccountService) EnsureSystemAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.repo.GetByUsername(ctx, domain.SystemAdminUsername)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return false, fmt.Errorf("get system admin: %w", err)
	}

	if err := s.policy.ValidateComplexity(password); err != nil {
		return false, fmt.Errorf("system admin password: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	profileID := domain.SuperAdminProfileID
	acc := &domain.Account{
		ID:                   uuid.New(),
		Username:             domain.SystemAdminUsername,
		Name:                 "System Administrator",
		PasswordHash:         hash,
		PasswordHistory:      []string{hash},
		LastPasswordChangeAt: &now,
		Active:               true,
		Privileged:           true,
		ProfileID:            &profileID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}

	s.logger.Info("system admin account seeded", "username", acc.Username, "account_id", acc.ID)
	return true, nil
}

// Get returns an account by ID.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns non-privileged accounts matching the filter.
func (s *AccountService) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// ToggleStatus performs the logical exclusion of an account.
// A locked account is unlocked with its counters reset; otherwise Active is flipped.
func (s *AccountService) ToggleStatus(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := s.mut.mutate(ctx, id, func(acc *domain.Account) (bool, error) {
		if acc.Privileged {
			return false, domain.ErrEditForbidden
		}
		if acc.Locked {
			acc.Locked = false
			acc.FailedAttemptCount = 0
			acc.LastFailedAttemptAt = nil
			return true, nil
		}
		acc.Active = !acc.Active
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status toggled",
		"username", acc.Username, "account_id", acc.ID, "active", acc.Active, "locked", acc.Locked)
	return acc, nil
}

// ToggleLock flips the lock flag of an account.
func (s *AccountService) ToggleLock(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := s.mut.mutate(ctx, id, func(acc *domain.Account) (bool, error) {
		if err := s.tracker.Toggle(acc); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("account lock toggled", "username", acc.Username, "account_id", acc.ID, "locked", acc.Locked)
	return acc, nil
}

// ValidateUsername checks a normalized username.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username", domain.ErrRequiredField)
	}
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return fmt.Errorf("%w: must be between %d and %d characters", domain.ErrInvalidUsername, UsernameMinLength, UsernameMaxLength)
	}
	for _, r := range username {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: whitespace and control characters are not allowed", domain.ErrInvalidUsername)
		}
	}
	return nil
}
