package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/domain"
)

func newTestEntitlementService(usage UsageStore, users UserStore, b billing.Service) *entitlementService {
	return &entitlementService{
		usage:   usage,
		users:   users,
		billing: b,
		logger:  testLogger(),
		now:     time.Now,
	}
}

func seedUser(t *testing.T, users *fakeUserStore) *domain.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), &domain.User{
		ID:    uuid.New(),
		Email: "seller@example.com",
		Name:  "Seller",
	})
	require.NoError(t, err)
	return user
}

func TestResolveActiveSubscriptionGrantsPaidTier(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	b := &fakeBilling{
		customerID: "cus_123",
		sub:        &billing.ActiveSubscription{ID: "sub_123", ProductID: "prod_pro", PeriodEnd: end},
		tiers:      map[string]domain.Tier{"prod_pro": domain.TierPro},
	}

	svc := newTestEntitlementService(usage, users, b)
	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, ent.Tier)
	assert.True(t, ent.Subscribed)
	require.NotNil(t, ent.SubscriptionEnd)
	assert.Equal(t, end, *ent.SubscriptionEnd)
	assert.Equal(t, 50, ent.Limits.Images)

	rec := usage.record(user.ID)
	require.NotNil(t, rec)
	assert.Equal(t, domain.TierSourceBilling, rec.TierSource)
	assert.Equal(t, "cus_123", rec.StripeCustomerID)
	assert.Equal(t, "sub_123", rec.StripeSubscriptionID)
}

func TestResolveIsIdempotent(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	b := &fakeBilling{
		customerID: "cus_123",
		sub:        &billing.ActiveSubscription{ID: "sub_123", ProductID: "prod_max", PeriodEnd: time.Now().Add(time.Hour)},
		tiers:      map[string]domain.Tier{"prod_max": domain.TierMax},
	}
	svc := newTestEntitlementService(usage, users, b)

	first, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Tier, second.Tier)
	assert.Equal(t, first.Subscribed, second.Subscribed)
}

func TestResolveNoCustomerStaysFree(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	svc := newTestEntitlementService(usage, users, &fakeBilling{customerID: ""})
	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TierFree, ent.Tier)
	assert.False(t, ent.Subscribed)
	assert.Equal(t, domain.TierSourceDefault, usage.record(user.ID).TierSource)
}

func TestResolveUnknownProductFallsBackToFree(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	b := &fakeBilling{
		customerID: "cus_123",
		sub:        &billing.ActiveSubscription{ID: "sub_x", ProductID: "prod_mystery", PeriodEnd: time.Now().Add(time.Hour)},
	}
	svc := newTestEntitlementService(usage, users, b)

	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, ent.Tier)
	assert.False(t, ent.Subscribed)
}

func TestResolvePreservesCouponTierOverFreeBilling(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	require.NoError(t, usage.ApplyCoupon(context.Background(), user.ID, "JESUSINTECH", time.Now()))

	// Billing knows the customer but finds no active subscription.
	svc := newTestEntitlementService(usage, users, &fakeBilling{customerID: "cus_123"})
	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, ent.Tier, "coupon grant must survive a free billing outcome")
	assert.True(t, ent.Subscribed)
	assert.Equal(t, domain.TierSourceCoupon, usage.record(user.ID).TierSource)
}

func TestResolvePaidBillingOverridesCoupon(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	require.NoError(t, usage.ApplyCoupon(context.Background(), user.ID, "JESUSINTECH", time.Now()))

	b := &fakeBilling{
		customerID: "cus_123",
		sub:        &billing.ActiveSubscription{ID: "sub_123", ProductID: "prod_max", PeriodEnd: time.Now().Add(time.Hour)},
		tiers:      map[string]domain.Tier{"prod_max": domain.TierMax},
	}
	svc := newTestEntitlementService(usage, users, b)

	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierMax, ent.Tier)
	assert.Equal(t, domain.TierSourceBilling, usage.record(user.ID).TierSource)
}

func TestResolveBillingFailureServesStoredState(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	rec := domain.NewUsageRecord(user.ID, time.Now())
	rec.Tier = domain.TierPro
	rec.TierSource = domain.TierSourceBilling
	usage.seed(rec)

	svc := newTestEntitlementService(usage, users, &fakeBilling{customerErr: errors.New("stripe down")})
	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err, "a billing outage must not fail the request")

	assert.Equal(t, domain.TierPro, ent.Tier, "stored state is served unchanged")
}

func TestResolveWithoutBillingBehavesLikeCurrent(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	svc := newTestEntitlementService(usage, users, nil)
	ent, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, ent.Tier)
}

func TestCurrentRollsUsageForDisplay(t *testing.T) {
	usage := newFakeUsageStore()
	users := newFakeUserStore()
	user := seedUser(t, users)

	rec := domain.NewUsageRecord(user.ID, time.Now().AddDate(0, -1, 0))
	rec.Counters.Copies = 12
	usage.seed(rec)

	svc := newTestEntitlementService(usage, users, nil)
	ent, err := svc.Current(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ent.Usage.Copies)
}
