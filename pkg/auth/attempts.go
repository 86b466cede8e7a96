package auth

import (
	"time"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/pkg/domain"
)

// Lockout defaults.
const (
	DefaultMaxAttempts   = 5
	DefaultAttemptWindow = time.Hour
)

// AttemptTracker maintains the failed-login counter and lock flag of an account.
// It only mutates the account it is given; persisting is the caller's job.
//
// Privileged accounts never accumulate attempts and are never locked.
type AttemptTracker struct {
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewAttemptTracker creates a tracker from config.
func NewAttemptTracker(cfg config.LockoutConfig) *AttemptTracker {
	t := &AttemptTracker{
		threshold: cfg.MaxAttempts,
		window:    cfg.AttemptWindow,
		now:       time.Now,
	}
	if t.threshold <= 0 {
		t.threshold = DefaultMaxAttempts
	}
	if t.window <= 0 {
		t.window = DefaultAttemptWindow
	}
	return t
}

// Threshold returns the number of failures that locks an account.
func (t *AttemptTracker) Threshold() int {
	return t.threshold
}

// Window returns the attempt window.
func (t *AttemptTracker) Window() time.Duration {
	return t.window
}

// RecordSuccess resets the counter after a successful authentication.
// It reports whether the account changed.
func (t *AttemptTracker) RecordSuccess(acc *domain.Account) bool {
	if acc.Privileged || acc.FailedAttemptCount == 0 {
		return false
	}
	acc.FailedAttemptCount = 0
	acc.LastFailedAttemptAt = nil
	return true
}

// RecordFailure registers a failed authentication and reports whether this
// failure caused the lock transition.
func (t *AttemptTracker) RecordFailure(acc *domain.Account) bool {
	if acc.Privileged {
		return false
	}

	now := t.now()
	if t.expired(acc, now) {
		acc.FailedAttemptCount = 1
	} else {
		acc.FailedAttemptCount++
	}
	acc.LastFailedAttemptAt = &now

	if !acc.Locked && acc.FailedAttemptCount >= t.threshold {
		acc.Locked = true
		return true
	}
	return false
}

// CheckUnlock runs before credential verification. A locked account whose last
// failure is older than the window is unlocked in place and true is returned.
// A locked account still inside the window yields ErrAccountLocked.
func (t *AttemptTracker) CheckUnlock(acc *domain.Account) (bool, error) {
	if !acc.Locked {
		return false, nil
	}
	if t.expired(acc, t.now()) {
		acc.Locked = false
		return true, nil
	}
	return false, domain.ErrAccountLocked
}

// Toggle flips the lock flag by administrative action.
// A manual lock stamps the last failure so it holds for a full window.
func (t *AttemptTracker) Toggle(acc *domain.Account) error {
	if acc.Privileged {
		return domain.ErrEditForbidden
	}
	acc.Locked = !acc.Locked
	if acc.Locked {
		now := t.now()
		acc.LastFailedAttemptAt = &now
	}
	return nil
}

// expired reports whether the last failure is absent or older than the window.
func (t *AttemptTracker) expired(acc *domain.Account, now time.Time) bool {
	return acc.LastFailedAttemptAt == nil || acc.LastFailedAttemptAt.Before(now.Add(-t.window))
}
