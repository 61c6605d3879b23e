package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/service"
)

// AuthHandler handles registration, login, and session management.
type AuthHandler struct {
	users   service.UserService
	limiter *middleware.AuthRateLimiter
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, limiter *middleware.AuthRateLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:   users,
		limiter: limiter,
		logger:  logger,
	}
}

// userView is the public shape of a user.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// HandleRegister creates a new account.
//
// POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"user": newUserView(user)})
}

// HandleLogin authenticates and returns a session token.
//
// POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.limiter != nil && domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			h.limiter.RecordFailedLogin(middleware.ClientIP(r))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.limiter != nil {
		h.limiter.ResetLogin(middleware.ClientIP(r))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  newUserView(result.User),
	})
}

// HandleLogout invalidates the presented session token.
//
// POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the authenticated user.
//
// GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": newUserView(user)})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
