package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPolicy() *PasswordPolicy {
	return NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: 7, HistoryLimit: 3}, fastHasher())
}

func TestPasswordPolicy_ValidateComplexity(t *testing.T) {
	policy := newTestPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "all classes", password: "Abcdef1!", wantErr: false},
		{name: "exactly min length", password: "Abcd1!x", wantErr: false},
		{name: "space counts as special", password: "Abc de1", wantErr: false},
		{name: "too short", password: "Ab1!xy", wantErr: true},
		{name: "accented too short", password: "Ááá1a!", wantErr: true},
		{name: "accented min length", password: "Ááá1aç!", wantErr: false},
		{name: "missing digit", password: "Abcdefg!", wantErr: true},
		{name: "missing lowercase", password: "ABCDEF1!", wantErr: true},
		{name: "missing uppercase", password: "abcdef1!", wantErr: true},
		{name: "missing special", password: "Abcdef12", wantErr: true},
		{name: "three of four is not enough", password: "abcdef1!x", wantErr: true},
		{name: "empty", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidateComplexity(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComplexity(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrWeakPassword) {
				t.Errorf("error %v is not ErrWeakPassword", err)
			}
		})
	}
}

// Exhaustive check over class combinations: success iff every class is present.
func TestPasswordPolicy_ValidateComplexity_ClassMatrix(t *testing.T) {
	policy := newTestPolicy()
	classes := []string{"1", "a", "B", "#"}

	for mask := 0; mask < 16; mask++ {
		password := ""
		for i, c := range classes {
			if mask&(1<<i) != 0 {
				password += c
			}
		}
		// Pad with a character from a class already present so the mask stays exact.
		for len(password) < 8 {
			if mask&2 != 0 {
				password += "a"
			} else if mask&4 != 0 {
				password += "B"
			} else if mask&1 != 0 {
				password += "1"
			} else {
				password += "#"
			}
		}

		err := policy.ValidateComplexity(password)
		if want := mask == 15; (err == nil) != want {
			t.Errorf("mask %04b password %q: err = %v, want ok=%v", mask, password, err, want)
		}
	}
}

func TestPasswordPolicy_ValidateNotReused(t *testing.T) {
	policy := newTestPolicy()
	h := fastHasher()

	oldHash, err := h.Hash("Old-pass1")
	require.NoError(t, err)
	otherHash, err := h.Hash("Other-pass2")
	require.NoError(t, err)
	history := []string{oldHash, otherHash}

	assert.ErrorIs(t, policy.ValidateNotReused("Old-pass1", history), domain.ErrPasswordReused)
	assert.ErrorIs(t, policy.ValidateNotReused("Other-pass2", history), domain.ErrPasswordReused)
	assert.NoError(t, policy.ValidateNotReused("Brand-new3", history))
	assert.NoError(t, policy.ValidateNotReused("Old-pass1", nil))
}

func TestPasswordPolicy_ValidateConfirmationMatch(t *testing.T) {
	policy := newTestPolicy()

	assert.NoError(t, policy.ValidateConfirmationMatch("Abcdef1!", "Abcdef1!"))
	assert.NoError(t, policy.ValidateConfirmationMatch("Abcdef1!", "abcdef1!"))
	assert.ErrorIs(t, policy.ValidateConfirmationMatch("Abcdef1!", "Abcdef2!"), domain.ErrPasswordMismatch)
}

func TestRecordNewPassword(t *testing.T) {
	history := []string{"h1", "h2"}

	got := RecordNewPassword(history, "h3", 3)
	assert.Equal(t, []string{"h1", "h2", "h3"}, got)

	got = RecordNewPassword(got, "h4", 3)
	assert.Equal(t, []string{"h2", "h3", "h4"}, got)

	// Input is never mutated.
	assert.Equal(t, []string{"h1", "h2"}, history)

	// Shrinking limit evicts multiple entries from the front.
	got = RecordNewPassword([]string{"a", "b", "c", "d"}, "e", 2)
	assert.Equal(t, []string{"d", "e"}, got)
}

func TestRecordNewPassword_HistoryBoundAfterManyChanges(t *testing.T) {
	const limit = 5
	var history []string
	for i := 0; i <= limit; i++ {
		history = RecordNewPassword(history, fmt.Sprintf("hash-%d", i), limit)
	}

	assert.Len(t, history, limit)
	assert.NotContains(t, history, "hash-0")
	assert.Equal(t, "hash-5", history[limit-1])
}

func TestPasswordPolicy_Validate_Order(t *testing.T) {
	policy := newTestPolicy()
	h := fastHasher()
	reused, err := h.Hash("Abcdef1!")
	require.NoError(t, err)

	tests := []struct {
		name         string
		creating     bool
		password     string
		confirmation string
		history      []string
		want         error
	}{
		{name: "required on creation", creating: true, password: "", confirmation: "", want: domain.ErrRequiredField},
		{name: "empty on change is weak", creating: false, password: "", confirmation: "", want: domain.ErrWeakPassword},
		{name: "weak beats mismatch", password: "weak", confirmation: "other", want: domain.ErrWeakPassword},
		{name: "reuse beats mismatch", password: "Abcdef1!", confirmation: "nope", history: []string{reused}, want: domain.ErrPasswordReused},
		{name: "mismatch", password: "Abcdef1!", confirmation: "Abcdef2!", want: domain.ErrPasswordMismatch},
		{name: "case-insensitive confirmation", password: "Abcdef1!", confirmation: "abcdef1!", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.creating, tt.password, tt.confirmation, tt.history)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewPasswordPolicy_Defaults(t *testing.T) {
	policy := NewPasswordPolicy(config.PasswordPolicyConfig{}, fastHasher())

	assert.Equal(t, DefaultPasswordMinLength, policy.MinLength)
	assert.Equal(t, DefaultPasswordHistoryLimit, policy.HistoryLimit)
	assert.Equal(t, 60*24*time.Hour, policy.MaxAge)
	assert.Contains(t, policy.Requirements(), "at least 7 characters")
}
