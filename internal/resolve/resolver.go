// Package resolve walks the charge/refund/invoice object graph of a
// verified event to find the ledger-correlation metadata.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/webhook"
	"github.com/garrettladley/settle/internal/xslog"
)

var (
	// ErrFetchFailure marks a transient provider read failure. Redelivery
	// is expected to succeed, so the caller requests a retry.
	ErrFetchFailure = errors.New("provider fetch failed")

	// ErrMetadataMissing marks a terminal data-integrity failure: the
	// object graph carries no correlation hash and redelivery will not
	// produce different data.
	ErrMetadataMissing = errors.New("payment metadata missing")
)

// Metadata keys as written by the checkout initiation flow.
const (
	keyHash           = "hash"
	keySubscriptionID = "subscription_id"
	keyUserID         = "user_id"
	keySource         = "source"
	keyDataSource     = "data_src"
)

// Metadata correlates a provider-side event with the internal ledger.
// Hash is the sole correlation key and is always non-empty.
type Metadata struct {
	Hash           string
	SubscriptionID string
	UserID         string
	Source         string
	DataSource     string
}

// FromMap extracts Metadata from a provider metadata map. Reports false
// when the correlation hash is absent; the remaining keys are optional.
func FromMap(m map[string]string) (Metadata, bool) {
	if m == nil || m[keyHash] == "" {
		return Metadata{}, false
	}
	return Metadata{
		Hash:           m[keyHash],
		SubscriptionID: m[keySubscriptionID],
		UserID:         m[keyUserID],
		Source:         m[keySource],
		DataSource:     m[keyDataSource],
	}, true
}

// Resolution is the resolver's output: the correlation metadata plus the
// objects fetched along the way, reused by the amount calculator.
type Resolution struct {
	Metadata Metadata
	Charge   *stripe.Charge
	Invoice  *stripe.Invoice
}

type Resolver struct {
	api provider.API
}

func New(api provider.API) *Resolver {
	return &Resolver{api: api}
}

// Resolve locates the correlation metadata for event, in order: the
// underlying charge's own metadata, then the first line item of the
// charge's linked invoice. Charge-level metadata always wins.
func (r *Resolver) Resolve(ctx context.Context, event *webhook.Event) (*Resolution, error) {
	charge, err := r.resolveCharge(ctx, event)
	if err != nil {
		return nil, err
	}

	var invoice *stripe.Invoice
	if charge.Invoice != nil && charge.Invoice.ID != "" {
		invoice, err = r.api.GetInvoice(ctx, charge.Invoice.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invoice %s: %v", ErrFetchFailure, charge.Invoice.ID, err)
		}
	}

	if md, ok := FromMap(charge.Metadata); ok {
		return &Resolution{Metadata: md, Charge: charge, Invoice: invoice}, nil
	}

	if invoice != nil {
		if md, ok := firstLineMetadata(invoice); ok {
			return &Resolution{Metadata: md, Charge: charge, Invoice: invoice}, nil
		}
	}

	return nil, fmt.Errorf("%w: charge %s", ErrMetadataMissing, charge.ID)
}

func (r *Resolver) resolveCharge(ctx context.Context, event *webhook.Event) (*stripe.Charge, error) {
	switch obj := event.Object.(type) {
	case webhook.ChargeObject:
		return obj.Charge, nil
	case webhook.RefundObject:
		refund := obj.Refund
		if refund.Charge == nil || refund.Charge.ID == "" {
			return nil, fmt.Errorf("%w: refund %s has no charge", ErrMetadataMissing, refund.ID)
		}
		if chargeExpanded(refund.Charge) {
			return refund.Charge, nil
		}
		xslog.FromContext(ctx).DebugContext(ctx, "fetching refund charge",
			xslog.ChargeID(refund.Charge.ID))
		charge, err := r.api.GetCharge(ctx, refund.Charge.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: charge %s: %v", ErrFetchFailure, refund.Charge.ID, err)
		}
		return charge, nil
	default:
		return nil, fmt.Errorf("%w: event %s carries no charge or refund", ErrMetadataMissing, event.ID)
	}
}

// chargeExpanded distinguishes an inline charge object from the bare
// identifier stub the decoder produces for an unexpanded reference.
func chargeExpanded(c *stripe.Charge) bool {
	return c.Amount != 0 || c.Created != 0 || len(c.Metadata) > 0 || c.Invoice != nil
}

func firstLineMetadata(invoice *stripe.Invoice) (Metadata, bool) {
	if invoice.Lines == nil || len(invoice.Lines.Data) == 0 {
		return Metadata{}, false
	}
	return FromMap(invoice.Lines.Data[0].Metadata)
}
