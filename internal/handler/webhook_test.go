package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v79"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/repository"
)

type stubCustomerResolver struct {
	userID uuid.UUID
	err    error
}

func (s *stubCustomerResolver) FindUserIDByStripeCustomerID(ctx context.Context, customerID string) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	return s.userID, nil
}

func TestWebhookWithoutBillingReturns200(t *testing.T) {
	h := NewWebhookHandler(nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := doRequest(t, h.HandleStripeWebhook, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	b := &stubBillingService{
		VerifyFunc: func(payload []byte, signature string) (stripe.Event, error) {
			return stripe.Event{}, errors.New("signature mismatch")
		},
	}
	h := NewWebhookHandler(b, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := doRequest(t, h.HandleStripeWebhook, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookSubscriptionEventResolvesEntitlement(t *testing.T) {
	userID := uuid.New()
	b := &stubBillingService{
		VerifyFunc: func(payload []byte, signature string) (stripe.Event, error) {
			return stripe.Event{
				Type: "customer.subscription.updated",
				Data: &stripe.EventData{Raw: []byte(`{"customer":"cus_123","id":"sub_123"}`)},
			}, nil
		},
	}

	var resolved uuid.UUID
	ents := &stubEntitlementService{
		ResolveFunc: func(ctx context.Context, id uuid.UUID) (*domain.Entitlement, error) {
			resolved = id
			return &domain.Entitlement{Tier: domain.TierPro}, nil
		},
	}
	h := NewWebhookHandler(b, ents, &stubCustomerResolver{userID: userID}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=sig")
	rec := doRequest(t, h.HandleStripeWebhook, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, resolved)
}

func TestWebhookUnknownCustomerStillReturns200(t *testing.T) {
	b := &stubBillingService{
		VerifyFunc: func(payload []byte, signature string) (stripe.Event, error) {
			return stripe.Event{
				Type: "checkout.session.completed",
				Data: &stripe.EventData{Raw: []byte(`{"customer":"cus_new"}`)},
			}, nil
		},
	}
	ents := &stubEntitlementService{
		ResolveFunc: func(ctx context.Context, id uuid.UUID) (*domain.Entitlement, error) {
			t.Fatal("resolve must not be called for an unlinked customer")
			return nil, nil
		},
	}
	h := NewWebhookHandler(b, ents, &stubCustomerResolver{err: repository.ErrNotFound}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := doRequest(t, h.HandleStripeWebhook, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresIrrelevantEvents(t *testing.T) {
	b := &stubBillingService{
		VerifyFunc: func(payload []byte, signature string) (stripe.Event, error) {
			return stripe.Event{Type: "charge.refunded", Data: &stripe.EventData{Raw: []byte(`{}`)}}, nil
		},
	}
	ents := &stubEntitlementService{
		ResolveFunc: func(ctx context.Context, id uuid.UUID) (*domain.Entitlement, error) {
			t.Fatal("resolve must not be called")
			return nil, nil
		},
	}
	h := NewWebhookHandler(b, ents, &stubCustomerResolver{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := doRequest(t, h.HandleStripeWebhook, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
