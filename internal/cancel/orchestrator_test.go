package cancel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/ledger"
)

type fakeCanceler struct {
	canceled []string
	failOn   map[string]error
	statuses map[string]stripe.SubscriptionStatus
	panicOn  string
}

func (f *fakeCanceler) GetCharge(context.Context, string) (*stripe.Charge, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCanceler) GetInvoice(context.Context, string) (*stripe.Invoice, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCanceler) SessionsForPaymentIntent(context.Context, string) ([]*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCanceler) GetSession(context.Context, string) (*stripe.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCanceler) GetWebhookEndpoint(context.Context, string) (*stripe.WebhookEndpoint, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCanceler) CancelSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if id == f.panicOn {
		panic("boom")
	}
	if err, ok := f.failOn[id]; ok {
		return nil, err
	}
	f.canceled = append(f.canceled, id)
	status := stripe.SubscriptionStatusCanceled
	if s, ok := f.statuses[id]; ok {
		status = s
	}
	return &stripe.Subscription{ID: id, Status: status}, nil
}

func storeWith(subs ...ledger.RemoteSubscription) *ledger.MemoryStore {
	store := ledger.NewMemoryStore()
	for _, sub := range subs {
		store.AddRemoteSubscription(sub)
	}
	return store
}

func TestCancelAll(t *testing.T) {
	t.Parallel()

	sub := func(id string) ledger.RemoteSubscription {
		return ledger.RemoteSubscription{ID: id, UserID: "u1", SubscriptionID: "plan_1", Active: true}
	}

	t.Run("cancels every active subscription", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{}
		store := storeWith(sub("sub_a"), sub("sub_b"))

		ok := New(api, store).CancelAll(t.Context(), "u1", "plan_1")

		assert.True(t, ok)
		assert.ElementsMatch(t, []string{"sub_a", "sub_b"}, api.canceled)

		remaining, err := store.ActiveRemoteSubscriptions(t.Context(), "u1", "plan_1")
		assert.NoError(t, err)
		assert.Empty(t, remaining)
	})

	t.Run("continues past a failed cancellation", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{failOn: map[string]error{"sub_a": errors.New("api down")}}
		store := storeWith(sub("sub_a"), sub("sub_b"))

		ok := New(api, store).CancelAll(t.Context(), "u1", "plan_1")

		assert.False(t, ok)
		assert.Equal(t, []string{"sub_b"}, api.canceled)

		remaining, err := store.ActiveRemoteSubscriptions(t.Context(), "u1", "plan_1")
		assert.NoError(t, err)
		assert.Len(t, remaining, 1, "failed subscription must stay active in the ledger")
	})

	t.Run("unconfirmed status is not recorded as canceled", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{statuses: map[string]stripe.SubscriptionStatus{"sub_a": stripe.SubscriptionStatusActive}}
		store := storeWith(sub("sub_a"))

		ok := New(api, store).CancelAll(t.Context(), "u1", "plan_1")

		assert.False(t, ok)
		remaining, err := store.ActiveRemoteSubscriptions(t.Context(), "u1", "plan_1")
		assert.NoError(t, err)
		assert.Len(t, remaining, 1)
	})

	t.Run("no active subscriptions", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{}
		ok := New(api, storeWith()).CancelAll(t.Context(), "u1", "plan_1")
		assert.True(t, ok)
		assert.Empty(t, api.canceled)
	})

	t.Run("panic is contained", func(t *testing.T) {
		t.Parallel()
		api := &fakeCanceler{panicOn: "sub_a"}
		store := storeWith(sub("sub_a"))

		ok := New(api, store).CancelAll(t.Context(), "u1", "plan_1")
		assert.False(t, ok)
	})
}
