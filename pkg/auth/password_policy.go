package auth

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/danraniery/sgm/internal/config"
	"github.com/danraniery/sgm/pkg/domain"
)

// Policy defaults.
const (
	DefaultPasswordMinLength    = 7
	DefaultPasswordHistoryLimit = 24
	DefaultPasswordMaxAge       = 60 * 24 * time.Hour
)

// PasswordPolicy enforces password complexity and history rules.
// Every character class is mandatory: digit, lowercase, uppercase and non-alphanumeric.
type PasswordPolicy struct {
	MinLength    int
	HistoryLimit int
	MaxAge       time.Duration
	hasher       Hasher
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig, hasher Hasher) *PasswordPolicy {
	p := &PasswordPolicy{
		MinLength:    cfg.MinLength,
		HistoryLimit: cfg.HistoryLimit,
		MaxAge:       cfg.MaxAge,
		hasher:       hasher,
	}
	if p.MinLength <= 0 {
		p.MinLength = DefaultPasswordMinLength
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = DefaultPasswordHistoryLimit
	}
	if p.MaxAge <= 0 {
		p.MaxAge = DefaultPasswordMaxAge
	}
	return p
}

// ValidateComplexity checks length and the four character classes.
func (p *PasswordPolicy) ValidateComplexity(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters long", domain.ErrWeakPassword, p.MinLength)
	}

	if !containsNumber(password) || !containsLowercase(password) ||
		!containsUppercase(password) || !containsSpecial(password) {
		return fmt.Errorf("%w: %s", domain.ErrWeakPassword, p.Requirements())
	}

	return nil
}

// ValidateNotReused fails if the candidate verifies against any stored hash.
func (p *PasswordPolicy) ValidateNotReused(candidate string, history []string) error {
	for _, old := range history {
		if p.hasher.Verify(candidate, old) {
			return domain.ErrPasswordReused
		}
	}
	return nil
}

// ValidateConfirmationMatch compares password and confirmation ignoring case.
func (p *PasswordPolicy) ValidateConfirmationMatch(password, confirmation string) error {
	if !strings.EqualFold(password, confirmation) {
		return domain.ErrPasswordMismatch
	}
	return nil
}

// RecordNewPassword appends newHash and evicts the oldest entries beyond limit.
// The returned slice never aliases history.
func RecordNewPassword(history []string, newHash string, limit int) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, newHash)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Validate runs the composite check in the order
// required, complexity, reuse, confirmation.
// The required check only applies when creating an account.
func (p *PasswordPolicy) Validate(creating bool, password, confirmation string, history []string) error {
	if creating && password == "" {
		return fmt.Errorf("%w: password", domain.ErrRequiredField)
	}
	if err := p.ValidateComplexity(password); err != nil {
		return err
	}
	if err := p.ValidateNotReused(password, history); err != nil {
		return err
	}
	return p.ValidateConfirmationMatch(password, confirmation)
}

// Requirements returns a human-readable description of the policy.
func (p *PasswordPolicy) Requirements() string {
	return fmt.Sprintf("password must contain at least %d characters, one number, one lowercase letter, one uppercase letter, one special character", p.MinLength)
}

// containsUppercase checks if string contains at least one uppercase letter.
func containsUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// containsLowercase checks if string contains at least one lowercase letter.
func containsLowercase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// containsNumber checks if string contains at least one digit.
func containsNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// containsSpecial checks if string contains at least one non-alphanumeric character.
func containsSpecial(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
