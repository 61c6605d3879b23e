// Package billing provides Stripe billing integration for subscription management.
package billing

import (
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	billingportalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/subscription"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/promoforge/promoforge/internal/domain"
)

// ActiveSubscription is the slice of a Stripe subscription the
// entitlement resolver needs.
type ActiveSubscription struct {
	ID        string
	ProductID string
	PeriodEnd time.Time
}

// Service defines the interface for billing operations.
type Service interface {
	// FindCustomerByEmail returns the Stripe customer ID for the email,
	// or "" when no customer exists.
	FindCustomerByEmail(email string) (string, error)

	// FindActiveSubscription returns the customer's active subscription,
	// or nil when none is active.
	FindActiveSubscription(customerID string) (*ActiveSubscription, error)

	// TierForProductID maps a Stripe product ID to a tier.
	// Unknown product IDs resolve to the free tier, never an error.
	TierForProductID(productID string) domain.Tier

	// CreateCheckoutSession creates a Stripe Checkout session for subscribing.
	// Returns the checkout URL to redirect the user to.
	CreateCheckoutSession(customerEmail, priceID, successURL, cancelURL string) (string, error)

	// CreatePortalSession creates a Stripe Customer Portal session.
	// Returns the portal URL to redirect the user to.
	CreatePortalSession(customerID, returnURL string) (string, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)
}

// ProductConfig holds the Stripe product IDs for each paid tier.
type ProductConfig struct {
	ProProductID string
	MaxProductID string
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret string
	productToTier map[string]domain.Tier
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey authenticates Stripe API calls. The webhookSecret
// verifies incoming webhook signatures. The products configure which
// Stripe product IDs map to which tiers.
func NewStripeService(secretKey, webhookSecret string, products ProductConfig) Service {
	stripe.Key = secretKey

	productToTier := make(map[string]domain.Tier)
	if products.ProProductID != "" {
		productToTier[products.ProProductID] = domain.TierPro
	}
	if products.MaxProductID != "" {
		productToTier[products.MaxProductID] = domain.TierMax
	}

	return &stripeService{
		webhookSecret: webhookSecret,
		productToTier: productToTier,
	}
}

func (s *stripeService) FindCustomerByEmail(email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)

	iter := customer.List(params)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("stripe list customers: %w", err)
	}
	return "", nil
}

func (s *stripeService) FindActiveSubscription(customerID string) (*ActiveSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	for iter.Next() {
		sub := iter.Subscription()
		active := &ActiveSubscription{
			ID:        sub.ID,
			PeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		}
		if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil && sub.Items.Data[0].Price.Product != nil {
			active.ProductID = sub.Items.Data[0].Price.Product.ID
		}
		return active, nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list subscriptions: %w", err)
	}
	return nil, nil
}

func (s *stripeService) TierForProductID(productID string) domain.Tier {
	if tier, ok := s.productToTier[productID]; ok {
		return tier
	}
	return domain.TierFree
}

func (s *stripeService) CreateCheckoutSession(customerEmail, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		CustomerEmail: stripe.String(customerEmail),
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := billingportalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}
