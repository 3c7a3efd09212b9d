package transport

import (
	"net/http"

	"produce-market/internal/domain"
	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenRequest carries a refresh token for /auth/refresh and /auth/logout.
type TokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	User         *Profile `json:"user,omitempty"`
}

func newProfile(u *domain.User) *Profile {
	return &Profile{ID: u.ID.String(), Email: u.Email, FullName: u.FullName, Phone: u.Phone, Role: u.Role}
}

// AccountHandler serves registration, sessions and the caller's profile.
type AccountHandler struct {
	accounts service.UserService
	logger   *zap.Logger
}

func NewAccountHandler(accounts service.UserService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger.Named("accounts")}
}

// RegisterRoutes mounts /auth behind authLimit and /me behind requireAuth.
func (h *AccountHandler) RegisterRoutes(r chi.Router, requireAuth, authLimit func(http.Handler) http.Handler) {
	r.With(authLimit).Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
	})

	r.With(requireAuth).Route("/me", func(r chi.Router) {
		r.Get("/", h.profile)
		r.Put("/", h.updateProfile)
	})
}

func (h *AccountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	user, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.FullName, req.Phone)
	if err != nil {
		respondError(w, h.logger, err, "registration failed")
		return
	}
	h.logger.Info("Account registered", zap.Stringer("user_id", user.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, newProfile(user))
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	access, refresh, user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, h.logger, err, "login failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, Session{AccessToken: access, RefreshToken: refresh, User: newProfile(user)})
}

func (h *AccountHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	access, err := h.accounts.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, h.logger, err, "token refresh failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, Session{AccessToken: access})
}

// logout always answers 204 once the token is revoked or unknown.
func (h *AccountHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if err := h.accounts.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, h.logger, err, "logout failed")
		return
	}
	noContent(w)
}

func (h *AccountHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err, "profile unavailable")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProfile(user))
}

func (h *AccountHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req ProfileRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(r.Context(), userID, req.FullName, req.Phone)
	if err != nil {
		respondError(w, h.logger, err, "profile update failed")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newProfile(user))
}
