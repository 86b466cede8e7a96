package account

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danraniery/sgm/internal/http/middleware"
	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/google/uuid"
)

// Service manages the account of the authenticated principal.
type Service interface {
	Account(ctx context.Context, username string) (*domain.Account, error)
	ChangePassword(ctx context.Context, accountID uuid.UUID, password, confirmation string) (*domain.Account, error)
	PasswordMaxAge() time.Duration
}

// Profiles resolves profile details.
type Profiles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// Handler handles current account endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	profiles Profiles
	tr       *i18n.Translator
	now      func() time.Time
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, service Service, profiles Profiles, tr *i18n.Translator) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		profiles: profiles,
		tr:       tr,
		now:      time.Now,
	}
}

// AccountResponse represents the authenticated account.
type AccountResponse struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	Profile        string   `json:"profile,omitempty"`
	Authorities    []string `json:"authorities"`
	UpdatePassword bool     `json:"updatePassword"`
}

// ChangePasswordRequest represents a password change request.
type ChangePasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// GetAccount returns the current account.
// GET /api/account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.tr, domain.ErrInvalidToken)
		return
	}

	acc, err := h.service.Account(r.Context(), principal.Username)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	resp := AccountResponse{
		ID:             acc.ID.String(),
		Username:       acc.Username,
		Name:           acc.Name,
		Authorities:    principal.Authorities,
		UpdatePassword: acc.PasswordExpired(h.now(), h.service.PasswordMaxAge()),
	}
	if resp.Authorities == nil {
		resp.Authorities = []string{}
	}
	if acc.ProfileID != nil {
		profile, err := h.profiles.GetByID(r.Context(), *acc.ProfileID)
		switch {
		case err == nil:
			resp.Profile = profile.Name
		case errors.Is(err, domain.ErrProfileNotFound):
			h.logger.Warn("account references missing profile", "account_id", acc.ID, "profile_id", *acc.ProfileID)
		default:
			httputil.WriteError(w, r, h.tr, err)
			return
		}
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// ChangePassword replaces the current account's password.
// PATCH /api/account/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.tr, domain.ErrInvalidToken)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	acc, err := h.service.Account(r.Context(), principal.Username)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	if _, err := h.service.ChangePassword(r.Context(), acc.ID, req.Password, req.ConfirmPassword); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	w.Header().Set("Location", "/api/account")
	w.WriteHeader(http.StatusOK)
}
