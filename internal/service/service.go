// Package service contains the business logic layer.
//
// Services orchestrate repositories, the billing provider, and the AI
// provider. They are responsible for input validation, business rule
// enforcement, and error translation (storage errors -> domain errors).
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/repository"
)

// UsageStore is the persistence surface the quota, coupon, and
// entitlement services need. *repository.UsageStore implements it.
type UsageStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)
	UpsertBilling(ctx context.Context, userID uuid.UUID, tier domain.Tier, source domain.TierSource, customerID, subscriptionID string, subscriptionEnd *time.Time) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string, at time.Time) error
	CheckAndIncrement(ctx context.Context, userID uuid.UUID, category domain.Category, now time.Time) (*domain.IncrementResult, error)
}

// UserStore is the persistence surface the user service needs.
// *repository.UserStore implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	CreateSession(ctx context.Context, session *domain.Session) error
	GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// GenerationStore persists generation history.
// *repository.GenerationStore implements it.
type GenerationStore interface {
	Insert(ctx context.Context, g *repository.Generation) error
	ListByUser(ctx context.Context, userID uuid.UUID, category domain.Category, limit int) ([]repository.Generation, error)
}

// ProductStore persists user products.
// *repository.ProductStore implements it.
type ProductStore interface {
	Insert(ctx context.Context, p *repository.Product) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Product, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
}
