package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/promoforge/promoforge/internal/billing"
	"github.com/promoforge/promoforge/internal/service"
)

// maxWebhookBody caps Stripe webhook payloads.
const maxWebhookBody = 65536

// CustomerResolver finds the user linked to a Stripe customer.
type CustomerResolver interface {
	FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (uuid.UUID, error)
}

// WebhookHandler handles incoming webhook events from Stripe.
//
// Webhooks are a refresh hint, not the source of truth: on any
// subscription-affecting event the handler re-resolves the user's
// entitlement from the Stripe API rather than trusting the payload.
type WebhookHandler struct {
	billing      billing.Service
	entitlements service.EntitlementService
	customers    CustomerResolver
	logger       *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, entitlements service.EntitlementService, customers CustomerResolver, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:      billingService,
		entitlements: entitlements,
		customers:    customers,
		logger:       logger,
	}
}

// HandleStripeWebhook processes incoming Stripe webhook events.
//
// POST /webhooks/stripe
//
// This route is PUBLIC (no auth middleware) because Stripe calls it
// directly; authentication is the webhook signature.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "checkout.session.completed",
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"invoice.payment_succeeded",
		"invoice.payment_failed":
		h.refreshEntitlement(r.Context(), event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// refreshEntitlement re-resolves the entitlement of the user the event
// belongs to. Failures are logged, never surfaced: Stripe retries on
// non-2xx and the refresher sweep covers missed events anyway.
func (h *WebhookHandler) refreshEntitlement(ctx context.Context, event stripe.Event) {
	customerID := eventCustomerID(event)
	if customerID == "" {
		h.logger.Warn("webhook event carries no customer", "type", event.Type, "id", event.ID)
		return
	}

	userID, err := h.customers.FindUserIDByStripeCustomerID(ctx, customerID)
	if err != nil {
		// First checkout for a new customer: no row links the customer
		// yet. The user's next subscription check creates the link.
		h.logger.Info("no user linked to webhook customer",
			"customer_id", customerID, "type", event.Type)
		return
	}

	if _, err := h.entitlements.Resolve(ctx, userID); err != nil {
		h.logger.Error("entitlement refresh from webhook failed",
			"user_id", userID, "customer_id", customerID, "error", err)
	}
}

// eventCustomerID extracts the customer ID from the event payload.
// All subscription-affecting event objects carry a top-level customer
// field.
func eventCustomerID(event stripe.Event) string {
	var payload struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return ""
	}
	return payload.Customer
}
