package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/internal/i18n"
	"github.com/danraniery/sgm/pkg/auth"
	"github.com/danraniery/sgm/pkg/domain"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Service administers accounts.
type Service interface {
	List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, in auth.CreateAccountInput) (*domain.Account, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ToggleLock(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Profiles resolves profile details.
type Profiles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Handler handles user administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	profiles Profiles
	tr       *i18n.Translator
}

// NewHandler creates a new users handler.
func NewHandler(logger *slog.Logger, service Service, profiles Profiles, tr *i18n.Translator) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		profiles: profiles,
		tr:       tr,
	}
}

// CreateRequest represents a user creation request.
type CreateRequest struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	ProfileID       string `json:"profileId"`
	Active          bool   `json:"active"`
}

// Validate checks the request fields. Password rules are enforced by the password policy.
func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(auth.UsernameMinLength, auth.UsernameMaxLength)),
		validation.Field(&r.Name, validation.Required, validation.Length(auth.NameMinLength, auth.NameMaxLength)),
		validation.Field(&r.ProfileID, validation.Required, validation.By(isUUID)),
	)
}

func isUUID(value any) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}

// ProfileSummary is the profile embedded in user details.
type ProfileSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// UserResponse represents a user in detail views.
type UserResponse struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Profile  *ProfileSummary `json:"profile,omitempty"`
	Active   bool            `json:"active"`
	Blocked  bool            `json:"blocked"`
}

// UserListItem represents a user in list views.
type UserListItem struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Profile  string `json:"profile,omitempty"`
	Active   bool   `json:"active"`
	Blocked  bool   `json:"blocked"`
}

// ListResponse is a page of users.
type ListResponse struct {
	Items  []UserListItem `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// List returns non-privileged users.
// GET /api/users?search=&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	accounts, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(accounts))
	seen := make(map[uuid.UUID]bool)
	for _, acc := range accounts {
		if acc.ProfileID != nil && !seen[*acc.ProfileID] {
			seen[*acc.ProfileID] = true
			ids = append(ids, *acc.ProfileID)
		}
	}
	names, err := h.profiles.Names(r.Context(), ids)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	items := make([]UserListItem, 0, len(accounts))
	for _, acc := range accounts {
		item := UserListItem{
			ID:       acc.ID.String(),
			Username: acc.Username,
			Name:     acc.Name,
			Active:   acc.Active,
			Blocked:  acc.Locked,
		}
		if acc.ProfileID != nil {
			item.Profile = names[*acc.ProfileID]
		}
		items = append(items, item)
	}

	httputil.JSON(w, http.StatusOK, ListResponse{Items: items, Limit: filter.Limit, Offset: filter.Offset})
}

// Get returns one user.
// GET /api/users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	acc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	h.writeUser(w, r, http.StatusOK, acc)
}

// Create registers a new user.
// POST /api/users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	profileID := uuid.MustParse(req.ProfileID)
	acc, err := h.service.Create(r.Context(), auth.CreateAccountInput{
		Username:        req.Username,
		Name:            req.Name,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ProfileID:       &profileID,
		Active:          req.Active,
	})
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	h.writeUser(w, r, http.StatusCreated, acc)
}

// ToggleStatus performs the logical exclusion of a user.
// DELETE /api/users/{id}/logic
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.ToggleStatus)
}

// ToggleLock flips the lock of a user.
// PATCH /api/users/{id}/lock
func (h *Handler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.ToggleLock)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (*domain.Account, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	acc, err := fn(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, h.tr, err)
		return
	}

	h.writeUser(w, r, http.StatusOK, acc)
}

func (h *Handler) writeUser(w http.ResponseWriter, r *http.Request, status int, acc *domain.Account) {
	resp := UserResponse{
		ID:       acc.ID.String(),
		Username: acc.Username,
		Name:     acc.Name,
		Active:   acc.Active,
		Blocked:  acc.Locked,
	}
	if acc.ProfileID != nil {
		profile, err := h.profiles.GetByID(r.Context(), *acc.ProfileID)
		switch {
		case err == nil:
			resp.Profile = &ProfileSummary{ID: profile.ID.String(), Name: profile.Name, Active: profile.Active}
		case errors.Is(err, domain.ErrProfileNotFound):
			h.logger.Warn("account references missing profile", "account_id", acc.ID, "profile_id", *acc.ProfileID)
		default:
			httputil.WriteError(w, r, h.tr, err)
			return
		}
	}

	w.Header().Set("Location", "/api/users/"+acc.ID.String())
	httputil.JSON(w, status, resp)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, h.tr, domain.ErrAccountNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func parseFilter(r *http.Request) (domain.AccountFilter, error) {
	q := r.URL.Query()
	filter := domain.AccountFilter{Search: q.Get("search")}
	errs := validation.Errors{}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs["limit"] = errors.New("must be a non-negative integer")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs["offset"] = errors.New("must be a non-negative integer")
		}
		filter.Offset = n
	}

	if err := errs.Filter(); err != nil {
		return filter, err
	}
	return filter.Normalized(), nil
}
