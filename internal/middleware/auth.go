package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "user"

// GetUser retrieves the authenticated user from the request context.
//
// Returns nil if no user is authenticated (request passed through WithUser
// but carried no valid session token).
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// setUser stores a user in the request context.
func setUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// AuthMiddleware resolves session tokens into users.
//
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(userService service.UserService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
		logger:      logger,
	}
}

// WithUser is middleware that attempts to load the user from the
// Authorization header.
//
// The token is read from "Authorization: Bearer <token>". If the token is
// missing or invalid the request continues without a user; the handler (or
// RequireUser) decides whether that matters.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Invalid or expired session: continue unauthenticated.
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(setUser(r.Context(), user)))
	})
}

// RequireUser is middleware that requires an authenticated user.
//
// Must be used AFTER WithUser in the middleware chain:
//
//	mux.Handle("GET /api/usage", authMw.WithUser(authMw.RequireUser(h)))
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// Returns "" when the header is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
)
