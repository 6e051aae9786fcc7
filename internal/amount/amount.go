// Package amount computes the canonical (amount, currency, tax, inclusive)
// tuple for a resolved payment event. Amounts are integer minor units;
// conversion to decimals happens only at the system boundary.
package amount

import (
	"context"

	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/resolve"
	"github.com/garrettladley/settle/internal/xslog"
)

// Info is the canonical amount tuple. AmountMinor is never negative for
// well-formed provider data.
type Info struct {
	AmountMinor int64
	Currency    string
	TaxMinor    int64
	Inclusive   bool
}

type Calculator struct {
	api provider.API
}

func New(api provider.API) *Calculator {
	return &Calculator{api: api}
}

// Compute derives Info from a resolution.
//
// With a linked invoice (recurring payments) the invoice is authoritative.
// Without one (one-time payments) the charge's own fields are the default
// and the linked checkout session refines them when it can be fetched;
// session lookup is best-effort and never fails the operation.
func (c *Calculator) Compute(ctx context.Context, res *resolve.Resolution) Info {
	if res.Invoice != nil {
		return fromInvoice(res.Invoice)
	}

	charge := res.Charge
	info := Info{
		AmountMinor: charge.Amount,
		Currency:    string(charge.Currency),
		TaxMinor:    0,
		Inclusive:   true,
	}

	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return info
	}

	sessions, err := c.api.SessionsForPaymentIntent(ctx, charge.PaymentIntent.ID)
	if err != nil {
		xslog.FromContext(ctx).WarnContext(ctx, "session lookup failed, using charge amounts",
			xslog.Component("amount"),
			xslog.ChargeID(charge.ID),
			xslog.Error(err))
		return info
	}
	if len(sessions) != 1 {
		// Zero or many sessions for one payment intent: the tax split
		// cannot be trusted, keep the charge's own numbers.
		return info
	}

	return FromSession(sessions[0])
}

// FromSession derives Info from a checkout session. Shared with the
// redirect confirmation flow, which starts from a session rather than an
// event.
func FromSession(session *stripe.CheckoutSession) Info {
	info := Info{
		AmountMinor: session.AmountSubtotal,
		Currency:    string(session.Currency),
		Inclusive:   session.AmountTotal == session.AmountSubtotal,
	}
	if session.TotalDetails != nil {
		info.TaxMinor = session.TotalDetails.AmountTax
	}
	return info
}

func fromInvoice(invoice *stripe.Invoice) Info {
	info := Info{
		Currency:  string(invoice.Currency),
		TaxMinor:  invoice.Tax,
		Inclusive: invoice.Subtotal == invoice.AmountPaid,
	}
	if info.Inclusive {
		info.AmountMinor = invoice.AmountPaid
	} else {
		// Subtracting tax from integer minor units reintroduces the
		// off-by-one-cent errors the provider already solved; use its
		// pre-computed exclusive total instead.
		info.AmountMinor = invoice.TotalExcludingTax
	}
	return info
}
