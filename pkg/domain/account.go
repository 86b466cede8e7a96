package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SystemAdminUsername is the username of the seeded privileged account.
const SystemAdminUsername = "system.admin"

// Account represents a user account and its credential state.
type Account struct {
	ID                   uuid.UUID
	Username             string
	Name                 string
	PasswordHash         string
	PasswordHistory      []string
	LastPasswordChangeAt *time.Time
	LastFailedAttemptAt  *time.Time
	FailedAttemptCount   int
	Locked               bool
	Active               bool
	Privileged           bool
	ProfileID            *uuid.UUID
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NormalizeUsername lower-cases and trims a username. Usernames are stored normalized.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// PasswordExpired reports whether the account should be asked to change its password.
// Privileged accounts are exempt from password aging.
func (a *Account) PasswordExpired(now time.Time, maxAge time.Duration) bool {
	if a.Privileged {
		return false
	}
	if a.LastPasswordChangeAt == nil {
		return true
	}
	return a.LastPasswordChangeAt.Before(now.Add(-maxAge))
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (a *Account) Clone() *Account {
	c := *a
	if a.PasswordHistory != nil {
		c.PasswordHistory = append([]string(nil), a.PasswordHistory...)
	}
	if a.LastPasswordChangeAt != nil {
		t := *a.LastPasswordChangeAt
		c.LastPasswordChangeAt = &t
	}
	if a.LastFailedAttemptAt != nil {
		t := *a.LastFailedAttemptAt
		c.LastFailedAttemptAt = &t
	}
	if a.ProfileID != nil {
		id := *a.ProfileID
		c.ProfileID = &id
	}
	return &c
}

// Listing bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Search string
	Limit  int
	Offset int
}

// Normalized clamps Limit to (0, MaxListLimit] and Offset to >= 0.
func (f AccountFilter) Normalized() AccountFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
