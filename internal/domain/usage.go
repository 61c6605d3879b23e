// Package domain contains core business types and interfaces.
//
// This file defines the usage record (one row per user), the tier source
// reconciliation rules, and the pure period-roll logic.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TierSource records which authority last set the user's tier.
// The entitlement resolver uses it to avoid clobbering a coupon-granted
// tier with a billing-derived free tier.
type TierSource string

const (
	TierSourceDefault TierSource = "default"
	TierSourceBilling TierSource = "billing"
	TierSourceCoupon  TierSource = "coupon"
)

// ParseTierSource maps a raw string to a known tier source.
func ParseTierSource(s string) TierSource {
	switch TierSource(s) {
	case TierSourceBilling:
		return TierSourceBilling
	case TierSourceCoupon:
		return TierSourceCoupon
	default:
		return TierSourceDefault
	}
}

// UsageCounters holds the per-category counts consumed in the current period.
type UsageCounters struct {
	Products         int
	Images           int
	Copies           int
	ContentMarketing int
}

// For returns the count for a single category.
func (c UsageCounters) For(category Category) int {
	switch category {
	case CategoryProducts:
		return c.Products
	case CategoryImages:
		return c.Images
	case CategoryCopies:
		return c.Copies
	case CategoryContentMarketing:
		return c.ContentMarketing
	default:
		return 0
	}
}

// Add returns a copy with the given category incremented by one.
func (c UsageCounters) Add(category Category) UsageCounters {
	switch category {
	case CategoryProducts:
		c.Products++
	case CategoryImages:
		c.Images++
	case CategoryCopies:
		c.Copies++
	case CategoryContentMarketing:
		c.ContentMarketing++
	}
	return c
}

// UsageRecord is the single per-user row backing quota enforcement.
// It is created implicitly on the first metered action or subscription
// check and mutated only through merge upserts.
type UsageRecord struct {
	UserID      uuid.UUID
	Tier        Tier
	TierSource  TierSource
	Counters    UsageCounters
	PeriodStart time.Time

	// Billing linkage, written only by the entitlement resolver.
	StripeCustomerID     string
	StripeSubscriptionID string
	SubscriptionEnd      *time.Time

	// Coupon audit fields, written only on successful redemption.
	CouponApplied   string
	CouponAppliedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUsageRecord returns the zero-initialized record used when no row
// exists yet: free tier, all counters zero, period starting now.
func NewUsageRecord(userID uuid.UUID, now time.Time) *UsageRecord {
	return &UsageRecord{
		UserID:      userID,
		Tier:        TierFree,
		TierSource:  TierSourceDefault,
		PeriodStart: now.UTC(),
	}
}

// Subscribed reports whether the user currently holds a paid tier,
// whether via billing or a redeemed coupon.
func (r *UsageRecord) Subscribed() bool {
	return r.Tier.IsPaid()
}

// PeriodFor returns the UTC start of the period containing t under the
// given cadence: midnight for daily, first of the month for monthly.
func PeriodFor(t time.Time, cadence Cadence) time.Time {
	t = t.UTC()
	if cadence == CadenceDaily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NeedsRoll reports whether now has crossed into a new period relative
// to periodStart. The comparison is strictly forward: a now earlier than
// periodStart (clock skew) never triggers a roll.
func NeedsRoll(periodStart, now time.Time, cadence Cadence) bool {
	return PeriodFor(now, cadence).After(PeriodFor(periodStart, cadence))
}

// RollIfNeeded resets every counter and advances period_start when now
// falls in a later period than the record's period_start. It must run
// before any quota check or increment so a request landing in a fresh
// period is evaluated against zeroed counters. Returns true when a roll
// happened.
func (r *UsageRecord) RollIfNeeded(now time.Time) bool {
	cadence := ResetCadenceFor(r.Tier)
	if !NeedsRoll(r.PeriodStart, now, cadence) {
		return false
	}
	r.Counters = UsageCounters{}
	r.PeriodStart = now.UTC()
	return true
}

// IncrementResult is the outcome of an atomic check-and-increment.
// When Allowed is false the store was not mutated and the counters
// reflect the (rolled) state that caused the denial.
type IncrementResult struct {
	Allowed     bool
	Rolled      bool // a new period started during this call
	Tier        Tier
	Counters    UsageCounters // counters after the increment (or unchanged on denial)
	Limit       int           // limit for the requested category; Unlimited for uncapped tiers
	Remaining   int           // max(0, limit - count); 0 when unlimited is false and exhausted
	PeriodStart time.Time
}

// Entitlement is the resolved, authoritative subscription state for a
// user, returned to clients for display and polled on a fixed interval.
type Entitlement struct {
	Tier            Tier
	Subscribed      bool
	SubscriptionEnd *time.Time
	Usage           UsageCounters
	Limits          TierLimits
	PeriodStart     time.Time
}
