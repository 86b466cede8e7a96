package authenticate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/pkg/domain"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Service issues token pairs.
type Service interface {
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

// Handler handles authentication endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	tr      *i18n.Translator
}

// NewHandler creates a new authentication handler.
func NewHandler(logger *slog.Logger, service Service, tr *i18n.Translator) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		tr:      tr,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the request fields.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate checks the request fields.
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// TokenResponse represents a token response.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates credentials and returns a token pair.
// POST /api/authenticate
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	h.writeTokens(w, tokens)
}

// Refresh issues a new access token from a refresh token.
// POST /api/authenticate/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Debug("token refresh rejected", "error", err)
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	h.writeTokens(w, tokens)
}

func (h *Handler) writeTokens(w http.ResponseWriter, tokens *domain.TokenPair) {
	w.Header().Set("Authorization", tokens.TokenType+" "+tokens.AccessToken)
	w.Header().Set("Cache-Control", "no-store")
	httputil.JSON(w, http.StatusOK, TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}
