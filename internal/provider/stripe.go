package provider

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

const defaultTimeout = 30 * time.Second

type Config struct {
	SecretKey string

	// MaxNetworkRetries is passed to the SDK's automatic retry layer.
	MaxNetworkRetries int64

	// Telemetry toggles the SDK's request telemetry headers.
	Telemetry bool

	// CABundlePath, when set, replaces the system roots for provider TLS.
	CABundlePath string

	// TLSMinVersion optionally raises the TLS floor ("1.2" or "1.3").
	TLSMinVersion string
}

// Client implements API over the Stripe SDK.
type Client struct {
	sc *client.API
}

var _ API = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("provider: secret key is required")
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("provider: %w", err)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		EnableTelemetry:   stripe.Bool(cfg.Telemetry),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Client{sc: sc}, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	tlsConfig := &tls.Config{}

	switch cfg.TLSMinVersion {
	case "":
	case "1.2":
		tlsConfig.MinVersion = tls.VersionTLS12
	case "1.3":
		tlsConfig.MinVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unsupported TLS min version %q", cfg.TLSMinVersion)
	}

	if cfg.CABundlePath != "" {
		pem, err := os.ReadFile(cfg.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no certificates", cfg.CABundlePath)
		}
		tlsConfig.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &http.Client{Transport: transport, Timeout: defaultTimeout}, nil
}

func params(ctx context.Context) stripe.Params {
	return stripe.Params{Context: ctx}
}

func (c *Client) GetCharge(ctx context.Context, id string) (*stripe.Charge, error) {
	return c.sc.Charges.Get(id, &stripe.ChargeParams{Params: params(ctx)})
}

func (c *Client) GetInvoice(ctx context.Context, id string) (*stripe.Invoice, error) {
	return c.sc.Invoices.Get(id, &stripe.InvoiceParams{Params: params(ctx)})
}

func (c *Client) SessionsForPaymentIntent(ctx context.Context, paymentIntentID string) ([]*stripe.CheckoutSession, error) {
	listParams := &stripe.CheckoutSessionListParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	listParams.Context = ctx

	var sessions []*stripe.CheckoutSession
	iter := c.sc.CheckoutSessions.List(listParams)
	for iter.Next() {
		sessions = append(sessions, iter.CheckoutSession())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return c.sc.CheckoutSessions.Get(id, &stripe.CheckoutSessionParams{Params: params(ctx)})
}

func (c *Client) CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	cancelParams := &stripe.SubscriptionCancelParams{Params: params(ctx)}
	// Redelivered cancellations for the same subscription must collapse
	// into one remote mutation.
	cancelParams.SetIdempotencyKey("cancel-subscription-" + id)
	return c.sc.Subscriptions.Cancel(id, cancelParams)
}

func (c *Client) GetWebhookEndpoint(ctx context.Context, id string) (*stripe.WebhookEndpoint, error) {
	return c.sc.WebhookEndpoints.Get(id, &stripe.WebhookEndpointParams{Params: params(ctx)})
}
