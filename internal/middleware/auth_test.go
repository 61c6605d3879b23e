package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/promoforge/internal/domain"
)

// mockUserService implements service.UserService for testing. Only
// GetBySessionToken matters to the middleware; the rest are stubs.
type mockUserService struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	return nil
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoUserHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) != nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestWithUserValidToken(t *testing.T) {
	userID := uuid.New()
	svc := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			require.Equal(t, "tok123", token)
			return &domain.User{ID: userID, Email: "a@b.co"}, nil
		},
	}
	mw := NewAuthMiddleware(svc, newTestLogger())

	var got *domain.User
	handler := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, userID, got.ID)
}

func TestWithUserMissingHeaderContinuesUnauthenticated(t *testing.T) {
	mw := NewAuthMiddleware(&mockUserService{}, newTestLogger())
	handler := mw.WithUser(echoUserHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithUserInvalidTokenContinuesUnauthenticated(t *testing.T) {
	svc := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			return nil, domain.Unauthorized("", "invalid session")
		},
	}
	mw := NewAuthMiddleware(svc, newTestLogger())
	handler := mw.WithUser(echoUserHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithUserIgnoresNonBearerSchemes(t *testing.T) {
	called := false
	svc := &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, token string) (*domain.User, error) {
			called = true
			return nil, errors.New("should not be called")
		},
	}
	mw := NewAuthMiddleware(svc, newTestLogger())
	handler := mw.WithUser(echoUserHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, called)
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	mw := NewAuthMiddleware(&mockUserService{}, newTestLogger())
	handler := mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestRequireUserPassesAuthenticated(t *testing.T) {
	mw := NewAuthMiddleware(&mockUserService{}, newTestLogger())
	handler := mw.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req = req.WithContext(setUser(req.Context(), &domain.User{ID: uuid.New()}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStackAppliesOutsideIn(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	stack := Stack(tag("outer"), tag("inner"))
	handler := stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
