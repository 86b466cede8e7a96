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

// DefaultMaxRetries bounds the reload-and-retry loop on concurrent updates.
const DefaultMaxRetries = 3

// mutator applies read-modify-write cycles to a single account.
type mutator struct {
	store   AccountStore
	locker  AccountLocker
	retries int
	logger  *slog.Logger
	now     func() time.Time
}

func newMutator(store AccountStore, locker AccountLocker, retries int, logger *slog.Logger) *mutator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	return &mutator{
		store:   store,
		locker:  locker,
		retries: retries,
		logger:  logger,
		now:     time.Now,
	}
}

// mutate runs fn against a fresh copy of the account under the per-account lock
// and saves it when fn asks to. A stale save reloads the account and runs fn
// again, up to the configured number of attempts. The error returned by fn is
// returned after a successful save.
func (m *mutator) mutate(ctx context.Context, id uuid.UUID, fn func(acc *domain.Account) (bool, error)) (*domain.Account, error) {
	var lastErr error
	for attempt := 1; attempt <= m.retries; attempt++ {
		acc, result, err := m.mutateOnce(ctx, id, fn)
		if err == nil {
			return acc, result
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			return nil, err
		}
		lastErr = err
		m.logger.Debug("concurrent account update, retrying", "account_id", id, "attempt", attempt)
	}
	return nil, lastErr
}

// mutateOnce reports the error from fn separately from lock, load and save errors.
func (m *mutator) mutateOnce(ctx context.Context, id uuid.UUID, fn func(acc *domain.Account) (bool, error)) (acc *domain.Account, result error, err error) {
	unlock, err := m.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	acc, err = m.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	persist, result := fn(acc)
	if persist {
		acc.UpdatedAt = m.now()
		if err := m.store.Save(ctx, acc); err != nil {
			if errors.Is(err, domain.ErrConcurrentUpdate) {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("save account: %w", err)
		}
	}
	return acc, result, nil
}
