package auth

import (
	"testing"
	"time"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(clock *fakeClock) *AttemptTracker {
	tr := NewAttemptTracker(config.LockoutConfig{MaxAttempts: 5, AttemptWindow: time.Hour})
	tr.now = clock.Now
	return tr
}

func TestAttemptTracker_LocksOnThresholdNotBefore(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tr := newTestTracker(clock)
	acc := &domain.Account{Active: true}

	for i := 1; i < 5; i++ {
		clock.Advance(time.Minute)
		assert.False(t, tr.RecordFailure(acc), "failure %d must not lock", i)
		assert.False(t, acc.Locked)
		assert.Equal(t, i, acc.FailedAttemptCount)
	}

	clock.Advance(time.Minute)
	assert.True(t, tr.RecordFailure(acc), "fifth failure locks")
	assert.True(t, acc.Locked)
	assert.Equal(t, 5, acc.FailedAttemptCount)
	assert.Equal(t, clock.t, *acc.LastFailedAttemptAt)
}

func TestAttemptTracker_FourThenOneMoreLocks(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)
	last := clock.t.Add(-10 * time.Minute)
	acc := &domain.Account{FailedAttemptCount: 4, LastFailedAttemptAt: &last}

	assert.True(t, tr.RecordFailure(acc))
	assert.True(t, acc.Locked)
}

func TestAttemptTracker_ResetAfterWindow(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)
	last := clock.t.Add(-2 * time.Hour)
	acc := &domain.Account{FailedAttemptCount: 4, LastFailedAttemptAt: &last}

	assert.False(t, tr.RecordFailure(acc))
	assert.Equal(t, 1, acc.FailedAttemptCount)
	assert.False(t, acc.Locked)
}

func TestAttemptTracker_FirstFailureWithoutHistory(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)
	acc := &domain.Account{FailedAttemptCount: 3}

	tr.RecordFailure(acc)
	assert.Equal(t, 1, acc.FailedAttemptCount)
}

func TestAttemptTracker_PrivilegedNeverLocks(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)
	acc := &domain.Account{Privileged: true, Active: true}

	for i := 0; i < 100; i++ {
		clock.Advance(time.Second)
		assert.False(t, tr.RecordFailure(acc))
		require.False(t, acc.Locked, "privileged account locked after %d failures", i+1)
	}
	assert.Zero(t, acc.FailedAttemptCount)
	assert.Nil(t, acc.LastFailedAttemptAt)
}

func TestAttemptTracker_RecordSuccess(t *testing.T) {
	tr := newTestTracker(&fakeClock{t: time.Now()})
	now := time.Now()

	acc := &domain.Account{FailedAttemptCount: 3, LastFailedAttemptAt: &now}
	assert.True(t, tr.RecordSuccess(acc))
	assert.Zero(t, acc.FailedAttemptCount)
	assert.Nil(t, acc.LastFailedAttemptAt)

	assert.False(t, tr.RecordSuccess(acc), "second reset is a no-op")

	priv := &domain.Account{Privileged: true, FailedAttemptCount: 2}
	assert.False(t, tr.RecordSuccess(priv))
	assert.Equal(t, 2, priv.FailedAttemptCount)
}

func TestAttemptTracker_CheckUnlock(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)

	t.Run("unlocked account is a no-op", func(t *testing.T) {
		last := clock.t.Add(-time.Minute)
		acc := &domain.Account{FailedAttemptCount: 2, LastFailedAttemptAt: &last}
		before := *acc

		unlocked, err := tr.CheckUnlock(acc)
		assert.NoError(t, err)
		assert.False(t, unlocked)
		assert.Equal(t, before, *acc)
	})

	t.Run("locked inside window", func(t *testing.T) {
		last := clock.t.Add(-30 * time.Minute)
		acc := &domain.Account{Locked: true, FailedAttemptCount: 5, LastFailedAttemptAt: &last}

		unlocked, err := tr.CheckUnlock(acc)
		assert.ErrorIs(t, err, domain.ErrAccountLocked)
		assert.False(t, unlocked)
		assert.True(t, acc.Locked)
	})

	t.Run("locked past window auto-unlocks", func(t *testing.T) {
		last := clock.t.Add(-2 * time.Hour)
		acc := &domain.Account{Locked: true, FailedAttemptCount: 5, LastFailedAttemptAt: &last}

		unlocked, err := tr.CheckUnlock(acc)
		assert.NoError(t, err)
		assert.True(t, unlocked)
		assert.False(t, acc.Locked)
	})
}

func TestAttemptTracker_Toggle(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tr := newTestTracker(clock)

	acc := &domain.Account{}
	require.NoError(t, tr.Toggle(acc))
	assert.True(t, acc.Locked)
	require.NotNil(t, acc.LastFailedAttemptAt)
	assert.Equal(t, clock.t, *acc.LastFailedAttemptAt)

	// A manual lock is not released before the window elapses.
	_, err := tr.CheckUnlock(acc)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)

	require.NoError(t, tr.Toggle(acc))
	assert.False(t, acc.Locked)

	priv := &domain.Account{Privileged: true}
	assert.ErrorIs(t, tr.Toggle(priv), domain.ErrEditForbidden)
	assert.False(t, priv.Locked)
}

func TestNewAttemptTracker_Defaults(t *testing.T) {
	tr := NewAttemptTracker(config.LockoutConfig{})
	assert.Equal(t, DefaultMaxAttempts, tr.Threshold())
	assert.Equal(t, DefaultAttemptWindow, tr.Window())
}
