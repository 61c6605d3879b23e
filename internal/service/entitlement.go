package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/metrics"
)

// EntitlementService resolves which tier a user is entitled to.
//
// Stripe is the authority for paid tiers: resolution looks the user's
// email up as a Stripe customer, inspects the active subscription, and
// merges the outcome into the usage row. A coupon-granted tier is only
// overwritten when billing grants a paid tier itself, so a lapsed trial
// never silently downgrades a coupon holder.
type EntitlementService interface {
	// Resolve re-derives the user's tier from the billing provider,
	// persists the outcome, and returns the resulting entitlement.
	// When the billing provider is unreachable the stored state is
	// returned unchanged and nothing is persisted.
	Resolve(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)

	// Current returns the stored entitlement without consulting the
	// billing provider.
	Current(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)
}

type entitlementService struct {
	usage   UsageStore
	users   UserStore
	billing billing.Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewEntitlementService creates a new EntitlementService. billing may
// be nil when Stripe is not configured; Resolve then behaves like
// Current.
func NewEntitlementService(usage UsageStore, users UserStore, billingSvc billing.Service, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		usage:   usage,
		users:   users,
		billing: billingSvc,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *entitlementService) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	const op = "entitlement.resolve"

	rec, err := s.usage.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage record")
	}

	if s.billing == nil {
		return s.fromRecord(rec), nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load user")
	}

	customerID, err := s.billing.FindCustomerByEmail(user.Email)
	if err != nil {
		// Billing being down must not block the user; serve the
		// stored state and let the next poll retry.
		s.logger.Warn("billing lookup failed, serving stored entitlement",
			"user_id", userID, "error", err)
		metrics.EntitlementRefreshesTotal.WithLabelValues("fallback").Inc()
		return s.fromRecord(rec), nil
	}

	var (
		billingTier    = domain.TierFree
		subscriptionID string
		subEnd         *time.Time
	)
	if customerID != "" {
		sub, err := s.billing.FindActiveSubscription(customerID)
		if err != nil {
			s.logger.Warn("subscription lookup failed, serving stored entitlement",
				"user_id", userID, "error", err)
			metrics.EntitlementRefreshesTotal.WithLabelValues("fallback").Inc()
			return s.fromRecord(rec), nil
		}
		if sub != nil {
			billingTier = s.billing.TierForProductID(sub.ProductID)
			subscriptionID = sub.ID
			end := sub.PeriodEnd
			subEnd = &end
		}
	}

	// Reconcile with what the row already says. Billing wins when it
	// grants a paid tier; a coupon grant survives a free billing
	// outcome; everything else resolves to free.
	tier, source := billingTier, domain.TierSourceBilling
	switch {
	case billingTier.IsPaid():
		// keep billing outcome
	case rec.TierSource == domain.TierSourceCoupon:
		tier, source = rec.Tier, domain.TierSourceCoupon
	case customerID == "":
		tier, source = domain.TierFree, domain.TierSourceDefault
	default:
		tier = domain.TierFree
	}

	if err := s.usage.UpsertBilling(ctx, userID, tier, source, customerID, subscriptionID, subEnd); err != nil {
		return nil, domain.Internal(err, op, "Failed to persist entitlement")
	}

	rec, err = s.usage.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to reload usage record")
	}

	metrics.EntitlementRefreshesTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("entitlement resolved",
		"user_id", userID, "tier", tier, "source", source, "customer_id", customerID)

	return s.fromRecord(rec), nil
}

func (s *entitlementService) Current(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	const op = "entitlement.current"

	rec, err := s.usage.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage record")
	}
	return s.fromRecord(rec), nil
}

// fromRecord builds the client-facing entitlement from a usage row,
// rolling the period for display.
func (s *entitlementService) fromRecord(rec *domain.UsageRecord) *domain.Entitlement {
	rec.RollIfNeeded(s.now())
	return &domain.Entitlement{
		Tier:            rec.Tier,
		Subscribed:      rec.Subscribed(),
		SubscriptionEnd: rec.SubscriptionEnd,
		Usage:           rec.Counters,
		Limits:          domain.LimitsFor(rec.Tier),
		PeriodStart:     rec.PeriodStart,
	}
}
