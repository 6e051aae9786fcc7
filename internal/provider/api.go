// Package provider exposes the narrow slice of the payment provider's API
// that settlement consumes. Transport concerns (automatic network retries,
// idempotency keys, telemetry) live in the SDK behind this interface.
package provider

import (
	"context"

	"github.com/stripe/stripe-go/v74"
)

type API interface {
	GetCharge(ctx context.Context, id string) (*stripe.Charge, error)
	GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error)
	// SessionsForPaymentIntent lists the checkout sessions linked to a
	// payment intent. The provider contract is exactly one.
	SessionsForPaymentIntent(ctx context.Context, paymentIntentID string) ([]*stripe.CheckoutSession, error)
	GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	// GetWebhookEndpoint reads endpoint configuration for the diagnostic
	// self-test. Never called on the hot path.
	GetWebhookEndpoint(ctx context.Context, id string) (*stripe.WebhookEndpoint, error)
}
