package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/promoforge/internal/domain"
)

func TestHandleRegister(t *testing.T) {
	userID := uuid.New()
	svc := &stubUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			assert.Equal(t, "seller@example.com", params.Email)
			return &domain.User{
				ID:        userID,
				Email:     params.Email,
				Name:      params.Name,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewAuthHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"seller@example.com","password":"password1","name":"Seller"}`))
	rec := doRequest(t, h.HandleRegister, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		User userView `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body.User.ID)
	assert.Equal(t, "seller@example.com", body.User.Email)
}

func TestHandleRegisterConflict(t *testing.T) {
	svc := &stubUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.Conflict("user.register", "An account with this email already exists")
		},
	}
	h := NewAuthHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"seller@example.com","password":"password1"}`))
	rec := doRequest(t, h.HandleRegister, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRegisterBadJSON(t *testing.T) {
	h := NewAuthHandler(&stubUserService{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{not json`))
	rec := doRequest(t, h.HandleRegister, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin(t *testing.T) {
	svc := &stubUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{
				User:  &domain.User{ID: uuid.New(), Email: email},
				Token: "raw-session-token",
			}, nil
		},
	}
	h := NewAuthHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"seller@example.com","password":"password1"}`))
	rec := doRequest(t, h.HandleLogin, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "raw-session-token")
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	svc := &stubUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("user.login", "Invalid email or password")
		},
	}
	h := NewAuthHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"seller@example.com","password":"wrong"}`))
	rec := doRequest(t, h.HandleLogin, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")
}

func TestHandleLogout(t *testing.T) {
	var loggedOut string
	svc := &stubUserService{
		LogoutFunc: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}
	h := NewAuthHandler(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer tok-to-kill")
	rec := doRequest(t, h.HandleLogout, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tok-to-kill", loggedOut)
}

func TestHandleMe(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "seller@example.com", Name: "Seller"}
	h := NewAuthHandler(&stubUserService{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := serveAuthed(t, h.HandleMe, req, user)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
}

func TestHandleMeUnauthenticated(t *testing.T) {
	h := NewAuthHandler(&stubUserService{}, nil, testLogger())

	rec := doRequest(t, h.HandleMe, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
