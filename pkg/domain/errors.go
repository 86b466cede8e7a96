package domain

import "errors"

// Authentication errors
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrUnauthorized        = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account locked due to too many failed login attempts")
	ErrAttemptsExceeded    = errors.New("login attempts exceeded")
	ErrAccountNotActivated = errors.New("account not activated")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredCredentials  = errors.New("credentials expired")
	ErrEditForbidden       = errors.New("privileged account cannot be edited")
	ErrConcurrentUpdate    = errors.New("account was modified concurrently")
)

// Validation errors
var (
	ErrWeakPassword     = errors.New("password does not meet requirements")
	ErrPasswordReused   = errors.New("password was used recently")
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
	ErrRequiredField    = errors.New("required field is missing")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrInvalidUsername  = errors.New("invalid username format")
	ErrInvalidName      = errors.New("invalid name")
)

// Translation keys returned to clients.
const (
	KeyBadCredentials   = "error.badCredentials"
	KeyAccessDenied     = "error.accessDenied"
	KeyUserBlocked      = "error.loginUserIsBlocked"
	KeyUserNotActivated = "error.loginUserNotActivated"
	KeyAttemptsExceeded = "error.password.logonAttemptsExceeded"
	KeySessionExpired   = "error.session.expired"
	KeyInvalidToken     = "error.session.invalidToken"
	KeyEditSuperEntity  = "error.editSuperEntity"
	KeyNotFound         = "error.globalNotFound"
	KeyConcurrency      = "error.concurrencyFailure"
	KeyValidation       = "error.validation"
	KeyPasswordWeak     = "error.password.notContains"
	KeyPasswordReused   = "error.password.equalsOldPassword"
	KeyPasswordMismatch = "error.password.notEqual"
	KeyRequired         = "error.required"
	KeyUsernameTaken    = "error.conflict.username"
	KeyInvalidUsername  = "error.invalidUsername"
	KeyInvalidName      = "error.invalidName"
	KeyInternal         = "error.internal"
)

var messageKeys = map[error]string{
	ErrAccountNotFound:     KeyNotFound,
	ErrProfileNotFound:     KeyNotFound,
	ErrUnauthorized:        KeyBadCredentials,
	ErrAccountLocked:       KeyUserBlocked,
	ErrAttemptsExceeded:    KeyAttemptsExceeded,
	ErrAccountNotActivated: KeyUserNotActivated,
	ErrInvalidToken:        KeyInvalidToken,
	ErrExpiredCredentials:  KeySessionExpired,
	ErrEditForbidden:       KeyEditSuperEntity,
	ErrConcurrentUpdate:    KeyConcurrency,
	ErrWeakPassword:        KeyPasswordWeak,
	ErrPasswordReused:      KeyPasswordReused,
	ErrPasswordMismatch:    KeyPasswordMismatch,
	ErrRequiredField:       KeyRequired,
	ErrUsernameTaken:       KeyUsernameTaken,
	ErrInvalidUsername:     KeyInvalidUsername,
	ErrInvalidName:         KeyInvalidName,
}

// MessageKey returns the translation key for a domain error, or KeyInternal.
func MessageKey(err error) string {
	for target, key := range messageKeys {
		if errors.Is(err, target) {
			return key
		}
	}
	return KeyInternal
}
