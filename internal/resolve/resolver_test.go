package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/webhook"
)

type fakeAPI struct {
	charges  map[string]*stripe.Charge
	invoices map[string]*stripe.Invoice

	chargeErr  error
	invoiceErr error

	chargeFetches  int
	invoiceFetches int
}

func (f *fakeAPI) GetCharge(_ context.Context, id string) (*stripe.Charge, error) {
	f.chargeFetches++
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	if c, ok := f.charges[id]; ok {
		return c, nil
	}
	return nil, errors.New("no such charge")
}

func (f *fakeAPI) GetInvoice(_ context.Context, id string) (*stripe.Invoice, error) {
	f.invoiceFetches++
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	if inv, ok := f.invoices[id]; ok {
		return inv, nil
	}
	return nil, errors.New("no such invoice")
}

func (f *fakeAPI) SessionsForPaymentIntent(context.Context, string) ([]*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) GetSession(context.Context, string) (*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) CancelSubscription(context.Context, string) (*stripe.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) GetWebhookEndpoint(context.Context, string) (*stripe.WebhookEndpoint, error) {
	return nil, errors.New("not implemented")
}

func chargeEvent(charge *stripe.Charge) *webhook.Event {
	return &webhook.Event{ID: "evt_1", Type: webhook.TypeChargeSucceeded, Object: webhook.ChargeObject{Charge: charge}}
}

func refundEvent(refund *stripe.Refund) *webhook.Event {
	return &webhook.Event{ID: "evt_1", Type: webhook.TypeRefundFailed, Object: webhook.RefundObject{Refund: refund}}
}

func invoiceWithLineHash(id, hash string) *stripe.Invoice {
	return &stripe.Invoice{
		ID: id,
		Lines: &stripe.InvoiceLineItemList{
			Data: []*stripe.InvoiceLineItem{{Metadata: map[string]string{"hash": hash}}},
		},
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("charge metadata returned without fetching", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		charge := &stripe.Charge{
			ID: "ch_1",
			Metadata: map[string]string{
				"hash":            "abc",
				"subscription_id": "sub_9",
				"user_id":         "42",
				"source":          "checkout",
			},
		}

		res, err := New(api).Resolve(t.Context(), chargeEvent(charge))
		if err != nil {
			t.Fatal(err)
		}

		want := Metadata{Hash: "abc", SubscriptionID: "sub_9", UserID: "42", Source: "checkout"}
		if diff := cmp.Diff(want, res.Metadata); diff != "" {
			t.Errorf("metadata mismatch (-want +got):\n%s", diff)
		}
		if api.chargeFetches != 0 || api.invoiceFetches != 0 {
			t.Errorf("fetches = %d charge, %d invoice; want none", api.chargeFetches, api.invoiceFetches)
		}
	})

	t.Run("charge metadata wins over invoice line metadata", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{invoices: map[string]*stripe.Invoice{"in_1": invoiceWithLineHash("in_1", "B")}}
		refund := &stripe.Refund{
			ID: "re_1",
			Charge: &stripe.Charge{
				ID:       "ch_1",
				Amount:   1000,
				Metadata: map[string]string{"hash": "A"},
				Invoice:  &stripe.Invoice{ID: "in_1"},
			},
		}

		res, err := New(api).Resolve(t.Context(), refundEvent(refund))
		if err != nil {
			t.Fatal(err)
		}
		if res.Metadata.Hash != "A" {
			t.Errorf("hash = %q, want A", res.Metadata.Hash)
		}
		if res.Invoice == nil {
			t.Error("linked invoice should be fetched and carried on the resolution")
		}
	})

	t.Run("invoice line metadata as fallback", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{invoices: map[string]*stripe.Invoice{"in_1": invoiceWithLineHash("in_1", "B")}}
		charge := &stripe.Charge{ID: "ch_1", Invoice: &stripe.Invoice{ID: "in_1"}}

		res, err := New(api).Resolve(t.Context(), chargeEvent(charge))
		if err != nil {
			t.Fatal(err)
		}
		if res.Metadata.Hash != "B" {
			t.Errorf("hash = %q, want B", res.Metadata.Hash)
		}
	})

	t.Run("unexpanded refund charge is fetched", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{charges: map[string]*stripe.Charge{
			"ch_1": {ID: "ch_1", Amount: 1000, Metadata: map[string]string{"hash": "abc"}},
		}}
		refund := &stripe.Refund{ID: "re_1", Charge: &stripe.Charge{ID: "ch_1"}}

		res, err := New(api).Resolve(t.Context(), refundEvent(refund))
		if err != nil {
			t.Fatal(err)
		}
		if res.Metadata.Hash != "abc" {
			t.Errorf("hash = %q, want abc", res.Metadata.Hash)
		}
		if api.chargeFetches != 1 {
			t.Errorf("charge fetches = %d, want 1", api.chargeFetches)
		}
	})

	t.Run("charge fetch failure is transient", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{chargeErr: errors.New("connection reset")}
		refund := &stripe.Refund{ID: "re_1", Charge: &stripe.Charge{ID: "ch_1"}}

		_, err := New(api).Resolve(t.Context(), refundEvent(refund))
		if !errors.Is(err, ErrFetchFailure) {
			t.Fatalf("error = %v, want ErrFetchFailure", err)
		}
	})

	t.Run("invoice fetch failure is transient", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{invoiceErr: errors.New("timeout")}
		charge := &stripe.Charge{ID: "ch_1", Metadata: map[string]string{"hash": "abc"}, Invoice: &stripe.Invoice{ID: "in_1"}}

		_, err := New(api).Resolve(t.Context(), chargeEvent(charge))
		if !errors.Is(err, ErrFetchFailure) {
			t.Fatalf("error = %v, want ErrFetchFailure", err)
		}
	})

	t.Run("no hash anywhere is terminal", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		charge := &stripe.Charge{ID: "ch_1", Metadata: map[string]string{"other": "x"}}

		_, err := New(api).Resolve(t.Context(), chargeEvent(charge))
		if !errors.Is(err, ErrMetadataMissing) {
			t.Fatalf("error = %v, want ErrMetadataMissing", err)
		}
	})

	t.Run("refund without charge reference is terminal", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		_, err := New(api).Resolve(t.Context(), refundEvent(&stripe.Refund{ID: "re_1"}))
		if !errors.Is(err, ErrMetadataMissing) {
			t.Fatalf("error = %v, want ErrMetadataMissing", err)
		}
	})
}
