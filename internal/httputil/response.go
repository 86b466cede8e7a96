// Package httputil holds JSON response helpers shared by the HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/pkg/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var statuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrExpiredCredentials, http.StatusForbidden},
	{domain.ErrAccountNotActivated, http.StatusUnauthorized},
	{domain.ErrAccountLocked, http.StatusBadRequest},
	{domain.ErrAttemptsExceeded, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrEditForbidden, http.StatusUnauthorized},
	{domain.ErrWeakPassword, http.StatusBadRequest},
	{domain.ErrPasswordReused, http.StatusBadRequest},
	{domain.ErrPasswordMismatch, http.StatusBadRequest},
	{domain.ErrRequiredField, http.StatusBadRequest},
	{domain.ErrInvalidUsername, http.StatusBadRequest},
	{domain.ErrInvalidName, http.StatusBadRequest},
	{domain.ErrUsernameTaken, http.StatusConflict},
	{domain.ErrConcurrentUpdate, http.StatusConflict},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrProfileNotFound, http.StatusNotFound},
	{ErrMalformedBody, http.StatusBadRequest},
}

// StatusFor maps an error to its HTTP status. Unknown errors map to 500.
func StatusFor(err error) int {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes an error response with a translation key in the request's language.
func Error(w http.ResponseWriter, r *http.Request, tr *i18n.Translator, status int, key string) {
	JSON(w, status, ErrorResponse{
		Error:   key,
		Message: tr.TranslateIn(tr.Negotiate(r.Header.Get("Accept-Language")), key),
	})
}

// WriteError maps err to a status and translated body.
// Validation errors carry one message per field. Internal errors are logged and never exposed.
func WriteError(w http.ResponseWriter, r *http.Request, tr *i18n.Translator, err error) {
	status := StatusFor(err)

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
		JSON(w, status, ErrorResponse{
			Error:   domain.KeyValidation,
			Message: tr.TranslateIn(tr.Negotiate(r.Header.Get("Accept-Language")), domain.KeyValidation),
			Fields:  fields,
		})
		return
	}

	if status == http.StatusRequestEntityTooLarge {
		Error(w, r, tr, status, i18n.KeyBodyTooLarge)
		return
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, r, tr, status, domain.KeyInternal)
		return
	}

	if errors.Is(err, ErrMalformedBody) {
		Error(w, r, tr, status, domain.KeyValidation)
		return
	}

	Error(w, r, tr, status, domain.MessageKey(err))
}

// ErrMalformedBody is returned by DecodeJSON for bodies that are not valid JSON for the target.
var ErrMalformedBody = errors.New("malformed request body")

// DecodeJSON decodes the request body into v, rejecting unknown fields.
// Oversized bodies keep their *http.MaxBytesError; other failures wrap ErrMalformedBody.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}
