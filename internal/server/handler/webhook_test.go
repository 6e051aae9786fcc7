package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/cancel"
	"github.com/garrettladley/settle/internal/currency"
	"github.com/garrettladley/settle/internal/ledger"
	"github.com/garrettladley/settle/internal/settle"
	"github.com/garrettladley/settle/internal/webhook"
)

const (
	testSecret = "whsec_handler_test"
	testNowSec = int64(1700000000)
)

type fakeAPI struct {
	sessions map[string]*stripe.CheckoutSession
	canceled []string
}

func (f *fakeAPI) GetCharge(context.Context, string) (*stripe.Charge, error) {
	return nil, errors.New("no such charge")
}

func (f *fakeAPI) GetInvoice(context.Context, string) (*stripe.Invoice, error) {
	return nil, errors.New("no such invoice")
}

func (f *fakeAPI) SessionsForPaymentIntent(context.Context, string) ([]*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) GetSession(_ context.Context, id string) (*stripe.CheckoutSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such session")
}

func (f *fakeAPI) CancelSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	f.canceled = append(f.canceled, id)
	return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusCanceled}, nil
}

func (f *fakeAPI) GetWebhookEndpoint(context.Context, string) (*stripe.WebhookEndpoint, error) {
	return nil, errors.New("not implemented")
}

func signedHeader(t *testing.T, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.", testNowSec)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", testNowSec, hex.EncodeToString(mac.Sum(nil)))
}

func newFixture(t *testing.T, api *fakeAPI) (*settle.Engine, *ledger.MemoryStore) {
	t.Helper()
	verifier, err := webhook.NewVerifier(testSecret, 5*time.Minute,
		webhook.WithNow(func() time.Time { return time.Unix(testNowSec, 0) }))
	require.NoError(t, err)

	store := ledger.NewMemoryStore()
	store.AddPayment(ledger.Record{Hash: "h1", UserID: "42", SubscriptionID: "sub_9"})
	store.SetPrice("sub_9", "usd", decimal.RequireFromString("25.00"))

	engine, err := settle.NewEngine(verifier, api, store, store, currency.DefaultRules())
	require.NoError(t, err)
	return engine, store
}

func postWebhook(h *Webhook, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set(webhook.SignatureHeader, sigHeader)
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)
	return rec
}

func TestHandleWebhookPaid(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	engine, store := newFixture(t, api)
	h := NewWebhook(engine, cancel.New(api, store))

	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_1","amount":2500,"currency":"usd","status":"succeeded","metadata":{"hash":"h1","subscription_id":"sub_9","user_id":"42"}}}}`)
	rec := postWebhook(h, payload, signedHeader(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, api.canceled)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	engine, store := newFixture(t, api)
	h := NewWebhook(engine, cancel.New(api, store))

	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_1"}}}`)
	rec := postWebhook(h, payload, "t=1700000000,v1=deadbeef")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhookUnknownEventAcked(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	engine, store := newFixture(t, api)
	h := NewWebhook(engine, cancel.New(api, store))

	payload := []byte(`{"id":"evt_1","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	rec := postWebhook(h, payload, signedHeader(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleWebhookRefundCancelsRemoteSubscriptions(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	engine, store := newFixture(t, api)
	store.AddRemoteSubscription(ledger.RemoteSubscription{
		ID: "sub_remote", UserID: "42", SubscriptionID: "sub_9", Active: true,
	})
	h := NewWebhook(engine, cancel.New(api, store))

	payload := []byte(`{"id":"evt_2","type":"charge.refunded","data":{"object":{"id":"ch_1","amount":2500,"currency":"usd","metadata":{"hash":"h1","subscription_id":"sub_9","user_id":"42"}}}}`)
	rec := postWebhook(h, payload, signedHeader(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sub_remote"}, api.canceled)
}

func TestHandleWebhookMissingSignatureHeader(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	engine, store := newFixture(t, api)
	h := NewWebhook(engine, cancel.New(api, store))

	payload := []byte(`{"id":"evt_1","type":"charge.succeeded","data":{"object":{"id":"ch_1"}}}`)
	rec := postWebhook(h, payload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
