package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
)

func getReturn(h *Redirect, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.HandleReturn(rec, req)
	return rec
}

func TestHandleReturn(t *testing.T) {
	t.Parallel()

	paidSession := &stripe.CheckoutSession{
		ID:             "cs_1",
		Currency:       stripe.CurrencyUSD,
		AmountSubtotal: 2500,
		AmountTotal:    2500,
		PaymentStatus:  stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:       map[string]string{"hash": "h1", "subscription_id": "sub_9"},
	}

	t.Run("paid session", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{sessions: map[string]*stripe.CheckoutSession{"cs_1": paidSession}}
		engine, _ := newFixture(t, api)
		rec := getReturn(NewRedirect(engine), "/payments/return?session_id=cs_1")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"paid"}`, rec.Body.String())
	})

	t.Run("unpaid session gets generic failure", func(t *testing.T) {
		t.Parallel()
		unpaid := *paidSession
		unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
		api := &fakeAPI{sessions: map[string]*stripe.CheckoutSession{"cs_1": &unpaid}}
		engine, _ := newFixture(t, api)
		rec := getReturn(NewRedirect(engine), "/payments/return?session_id=cs_1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "could not verify payment")
	})

	t.Run("unknown session gets generic failure", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		engine, _ := newFixture(t, api)
		rec := getReturn(NewRedirect(engine), "/payments/return?session_id=cs_missing")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "could not verify payment")
	})

	t.Run("missing session_id", func(t *testing.T) {
		t.Parallel()
		api := &fakeAPI{}
		engine, _ := newFixture(t, api)
		rec := getReturn(NewRedirect(engine), "/payments/return")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
