package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoforge/promoforge/internal/domain"
)

const usageColumns = `user_id, tier, tier_source,
	products_count, images_count, copies_count, content_marketing_count,
	period_start, stripe_customer_id, stripe_subscription_id, subscription_end_date,
	coupon_applied, coupon_applied_at, created_at, updated_at`

// UsageStore persists one UsageRecord row per user.
type UsageStore struct {
	pool *pgxpool.Pool
}

// NewUsageStore creates a new UsageStore.
func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// Get returns the user's usage record, or a zero-initialized default
// (free tier, zero counters, period starting now) when no row exists.
// The default is not persisted; the row is created lazily by the first
// write.
func (s *UsageStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM user_usage WHERE user_id = $1`, userID)

	rec, err := scanUsageRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewUsageRecord(userID, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage record: %w", err)
	}
	return rec, nil
}

// UpsertBilling merges billing-derived entitlement fields into the
// user's row, creating it if absent. Counters and coupon fields are
// left untouched (merge, not overwrite).
func (s *UsageStore) UpsertBilling(ctx context.Context, userID uuid.UUID, tier domain.Tier, source domain.TierSource, customerID, subscriptionID string, subscriptionEnd *time.Time) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_usage (user_id, tier, tier_source, stripe_customer_id, stripe_subscription_id, subscription_end_date)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
ON CONFLICT (user_id) DO UPDATE
SET tier = EXCLUDED.tier,
    tier_source = EXCLUDED.tier_source,
    stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, user_usage.stripe_customer_id),
    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
    subscription_end_date = EXCLUDED.subscription_end_date,
    updated_at = NOW()`,
		userID, tier, source, customerID, subscriptionID, subscriptionEnd)
	if err != nil {
		return fmt.Errorf("upsert billing fields: %w", err)
	}
	return nil
}

// ApplyCoupon marks the user as pro via a redeemed coupon, creating the
// row if absent. Counters and billing linkage are untouched.
func (s *UsageStore) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_usage (user_id, tier, tier_source, coupon_applied, coupon_applied_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE
SET tier = EXCLUDED.tier,
    tier_source = EXCLUDED.tier_source,
    coupon_applied = EXCLUDED.coupon_applied,
    coupon_applied_at = EXCLUDED.coupon_applied_at,
    updated_at = NOW()`,
		userID, domain.TierPro, domain.TierSourceCoupon, code, at.UTC())
	if err != nil {
		return fmt.Errorf("apply coupon: %w", err)
	}
	return nil
}

// FindUserIDByStripeCustomerID returns the user linked to a Stripe
// customer, or ErrNotFound when no row carries that customer ID.
func (s *UsageStore) FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM user_usage WHERE stripe_customer_id = $1`, customerID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find user by customer id: %w", err)
	}
	return userID, nil
}

// CheckAndIncrement performs the quota check and counter increment as a
// single indivisible operation: the row is locked for the duration of
// the transaction, the period is rolled if elapsed, the limit is
// re-checked against the current count, and the counter is incremented
// only when allowed. Two concurrent requests from the same user cannot
// both pass a check against a stale count.
func (s *UsageStore) CheckAndIncrement(ctx context.Context, userID uuid.UUID, category domain.Category, now time.Time) (*domain.IncrementResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin increment tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Create the row lazily so brand-new users start with a full quota.
	if _, err := tx.Exec(ctx, `
INSERT INTO user_usage (user_id, period_start) VALUES ($1, $2)
ON CONFLICT (user_id) DO NOTHING`, userID, now.UTC()); err != nil {
		return nil, fmt.Errorf("ensure usage row: %w", err)
	}

	row := tx.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM user_usage WHERE user_id = $1 FOR UPDATE`, userID)
	rec, err := scanUsageRecord(row)
	if err != nil {
		return nil, fmt.Errorf("lock usage record: %w", err)
	}

	rolled := rec.RollIfNeeded(now)

	limit := domain.LimitsFor(rec.Tier).For(category)
	count := rec.Counters.For(category)
	allowed := limit == domain.Unlimited || count < limit
	if allowed {
		rec.Counters = rec.Counters.Add(category)
	}

	if allowed || rolled {
		if _, err := tx.Exec(ctx, `
UPDATE user_usage
SET products_count = $2,
    images_count = $3,
    copies_count = $4,
    content_marketing_count = $5,
    period_start = $6,
    updated_at = NOW()
WHERE user_id = $1`,
			userID,
			rec.Counters.Products, rec.Counters.Images,
			rec.Counters.Copies, rec.Counters.ContentMarketing,
			rec.PeriodStart); err != nil {
			return nil, fmt.Errorf("update counters: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit increment tx: %w", err)
	}

	return &domain.IncrementResult{
		Allowed:     allowed,
		Rolled:      rolled,
		Tier:        rec.Tier,
		Counters:    rec.Counters,
		Limit:       limit,
		Remaining:   remainingAfter(limit, rec.Counters.For(category)),
		PeriodStart: rec.PeriodStart,
	}, nil
}

func remainingAfter(limit, count int) int {
	if limit == domain.Unlimited {
		return domain.Unlimited
	}
	if remaining := limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

func scanUsageRecord(row pgx.Row) (*domain.UsageRecord, error) {
	var (
		rec          domain.UsageRecord
		tier         string
		source       string
		customerID   *string
		subID        *string
		subEnd       *time.Time
		coupon       *string
		couponAt     *time.Time
	)
	if err := row.Scan(
		&rec.UserID, &tier, &source,
		&rec.Counters.Products, &rec.Counters.Images,
		&rec.Counters.Copies, &rec.Counters.ContentMarketing,
		&rec.PeriodStart, &customerID, &subID, &subEnd,
		&coupon, &couponAt, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.Tier = domain.ParseTier(tier)
	rec.TierSource = domain.ParseTierSource(source)
	if customerID != nil {
		rec.StripeCustomerID = *customerID
	}
	if subID != nil {
		rec.StripeSubscriptionID = *subID
	}
	rec.SubscriptionEnd = subEnd
	if coupon != nil {
		rec.CouponApplied = *coupon
	}
	rec.CouponAppliedAt = couponAt
	return &rec, nil
}
