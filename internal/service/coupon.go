package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/coupon"
	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/metrics"
)

// RedeemResult is the outcome of a coupon redemption attempt. Invalid
// codes are a normal outcome, not an error.
type RedeemResult struct {
	Accepted bool
	Tier     domain.Tier
	Message  string
}

// CouponService redeems promotional codes for tier upgrades.
type CouponService interface {
	// Redeem validates the code and, when valid, grants the user the
	// pro tier. Redeeming an already-applied code is a no-op success.
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error)
}

type couponService struct {
	validator *coupon.Validator
	usage     UsageStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(validator *coupon.Validator, usage UsageStore, logger *slog.Logger) CouponService {
	return &couponService{
		validator: validator,
		usage:     usage,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *couponService) Redeem(ctx context.Context, userID uuid.UUID, code string) (*RedeemResult, error) {
	const op = "coupon.redeem"

	normalized := coupon.Normalize(code)
	if !s.validator.Valid(normalized) {
		metrics.CouponRedemptionsTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("coupon rejected", "user_id", userID)
		return &RedeemResult{
			Accepted: false,
			Message:  "Invalid coupon code.",
		}, nil
	}

	rec, err := s.usage.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage record")
	}

	// Re-redeeming the same code is idempotent.
	if rec.CouponApplied == normalized {
		return &RedeemResult{
			Accepted: true,
			Tier:     rec.Tier,
			Message:  "Coupon already applied.",
		}, nil
	}

	if err := s.usage.ApplyCoupon(ctx, userID, normalized, s.now()); err != nil {
		return nil, domain.Internal(err, op, "Failed to apply coupon")
	}

	metrics.CouponRedemptionsTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("coupon applied", "user_id", userID, "code", normalized)

	return &RedeemResult{
		Accepted: true,
		Tier:     domain.TierPro,
		Message:  "Coupon applied! Your account now has Pro access.",
	}, nil
}
