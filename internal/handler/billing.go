package handler

import (
	"log/slog"
	"net/http"

	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/service"
)

// BillingConfig carries the checkout configuration for the handler.
type BillingConfig struct {
	ProPriceID string
	MaxPriceID string

	// AppBaseURL is where Stripe sends the user back after checkout
	// or a portal session.
	AppBaseURL string
}

// BillingHandler serves checkout and billing portal sessions.
type BillingHandler struct {
	billing billing.Service
	usage   service.UsageStore
	cfg     BillingConfig
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler. billingService may be
// nil when Stripe is not configured; the endpoints then return 503.
func NewBillingHandler(billingService billing.Service, usage service.UsageStore, cfg BillingConfig, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billingService,
		usage:   usage,
		cfg:     cfg,
		logger:  logger,
	}
}

// HandleCreateCheckout starts a Stripe checkout session for a tier.
//
// POST /api/billing/checkout
func (h *BillingHandler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(nil, "billing.checkout", "Billing is not configured"))
		return
	}

	var req struct {
		Tier string `json:"tier"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var priceID string
	switch domain.ParseTier(req.Tier) {
	case domain.TierPro:
		priceID = h.cfg.ProPriceID
	case domain.TierMax:
		priceID = h.cfg.MaxPriceID
	}
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.checkout", "Tier must be pro or max"))
		return
	}

	successURL := h.cfg.AppBaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := h.cfg.AppBaseURL + "/pricing"

	url, err := h.billing.CreateCheckoutSession(user.Email, priceID, successURL, cancelURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, "billing.checkout", "Failed to create checkout session"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// HandleCreatePortal starts a Stripe billing portal session so the
// user can manage or cancel their subscription.
//
// POST /api/billing/portal
func (h *BillingHandler) HandleCreatePortal(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(nil, "billing.portal", "Billing is not configured"))
		return
	}

	rec, err := h.usage.Get(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if rec.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.portal", "No billing account exists for this user"))
		return
	}

	url, err := h.billing.CreatePortalSession(rec.StripeCustomerID, h.cfg.AppBaseURL+"/settings")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, "billing.portal", "Failed to create portal session"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
