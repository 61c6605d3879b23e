package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/service"
)

// UsageHandler serves quota state, subscription state, and coupon
// redemption.
type UsageHandler struct {
	quota        service.QuotaService
	entitlements service.EntitlementService
	coupons      service.CouponService
	logger       *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(quota service.QuotaService, entitlements service.EntitlementService, coupons service.CouponService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		quota:        quota,
		entitlements: entitlements,
		coupons:      coupons,
		logger:       logger,
	}
}

// categoryUsage is the per-category slice of a usage response.
type categoryUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func usageByCategory(counters domain.UsageCounters, limits domain.TierLimits) map[string]categoryUsage {
	out := make(map[string]categoryUsage, len(domain.Categories))
	for _, cat := range domain.Categories {
		used := counters.For(cat)
		limit := limits.For(cat)
		remaining := domain.Unlimited
		if limit != domain.Unlimited {
			remaining = limit - used
			if remaining < 0 {
				remaining = 0
			}
		}
		out[string(cat)] = categoryUsage{Used: used, Limit: limit, Remaining: remaining}
	}
	return out
}

// HandleGetUsage returns the caller's current counters and limits.
//
// GET /api/usage
func (h *UsageHandler) HandleGetUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	rec, err := h.quota.Usage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tier":         rec.Tier,
		"period_start": rec.PeriodStart,
		"usage":        usageByCategory(rec.Counters, domain.LimitsFor(rec.Tier)),
	})
}

// HandleGetSubscription re-resolves and returns the caller's
// entitlement. This is the endpoint clients poll after checkout.
//
// GET /api/subscription
func (h *UsageHandler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	ent, err := h.entitlements.Resolve(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var subscriptionEnd *time.Time
	if ent.SubscriptionEnd != nil {
		t := ent.SubscriptionEnd.UTC()
		subscriptionEnd = &t
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"tier":             ent.Tier,
		"subscribed":       ent.Subscribed,
		"subscription_end": subscriptionEnd,
		"period_start":     ent.PeriodStart,
		"usage":            usageByCategory(ent.Usage, ent.Limits),
	})
}

// HandleRedeemCoupon applies a promotional code to the caller's account.
//
// POST /api/coupon
func (h *UsageHandler) HandleRedeemCoupon(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.coupons.Redeem(r.Context(), user.ID, req.Code)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if !result.Accepted {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, map[string]any{
		"accepted": result.Accepted,
		"tier":     result.Tier,
		"message":  result.Message,
	})
}
