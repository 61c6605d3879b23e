package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/promoforge/internal/domain"
)

type stubEntitlements struct {
	mu       sync.Mutex
	resolved []uuid.UUID
}

func (s *stubEntitlements) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, userID)
	return &domain.Entitlement{Tier: domain.TierFree}, nil
}

func (s *stubEntitlements) Current(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	return &domain.Entitlement{Tier: domain.TierFree}, nil
}

func TestRefresherSweepsActiveUsers(t *testing.T) {
	users := newFakeUserStore()
	active, err := users.CreateUser(context.Background(), &domain.User{ID: uuid.New(), Email: "active@x.co"})
	require.NoError(t, err)
	require.NoError(t, users.CreateSession(context.Background(), &domain.Session{
		ID:        uuid.New(),
		UserID:    active.ID,
		TokenHash: "hash",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	ents := &stubEntitlements{}
	r := NewRefresher(ents, users, RefresherConfig{Window: 24 * time.Hour}, testLogger())

	r.sweep(context.Background())

	assert.Equal(t, []uuid.UUID{active.ID}, ents.resolved)
}

func TestRefresherSkipsIdleUsers(t *testing.T) {
	users := newFakeUserStore()
	ents := &stubEntitlements{}
	r := NewRefresher(ents, users, RefresherConfig{}, testLogger())

	r.sweep(context.Background())

	assert.Empty(t, ents.resolved)
}
