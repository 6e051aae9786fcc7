// Package settle turns verified provider events into settlement outcomes.
// One inbound request yields exactly one Outcome and one ack Decision.
package settle

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/amount"
	"github.com/garrettladley/settle/internal/currency"
	"github.com/garrettladley/settle/internal/ledger"
	"github.com/garrettladley/settle/internal/pricing"
	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/resolve"
	"github.com/garrettladley/settle/internal/webhook"
	"github.com/garrettladley/settle/internal/xslog"
)

// RecordSource is the slice of the ledger the engine reads, satisfied by
// ledger.Store.
type RecordSource interface {
	PaymentByHash(ctx context.Context, hash string) (*ledger.Record, error)
}

// Engine drives an event through verification, classification, metadata
// resolution, amount computation, and the outcome state machine. All
// collaborators are fixed at construction; construction either succeeds or
// the process never serves requests.
type Engine struct {
	verifier *webhook.Verifier
	resolver *resolve.Resolver
	calc     *amount.Calculator
	api      provider.API
	records  RecordSource
	prices   pricing.Source
	rules    currency.Rules
}

func NewEngine(verifier *webhook.Verifier, api provider.API, records RecordSource, prices pricing.Source, rules currency.Rules) (*Engine, error) {
	switch {
	case verifier == nil:
		return nil, errors.New("settle: verifier is required")
	case api == nil:
		return nil, errors.New("settle: provider API is required")
	case records == nil:
		return nil, errors.New("settle: ledger record source is required")
	case prices == nil:
		return nil, errors.New("settle: price source is required")
	}
	return &Engine{
		verifier: verifier,
		resolver: resolve.New(api),
		calc:     amount.New(api),
		api:      api,
		records:  records,
		prices:   prices,
		rules:    rules,
	}, nil
}

// Result is what one processable event settles to. The downstream ledger
// match (out of this service) consumes Metadata.Hash and Outcome.
type Result struct {
	Outcome  Outcome
	Metadata resolve.Metadata
	Amount   amount.Info
}

// ProcessWebhook handles one inbound webhook delivery. Every path emits
// exactly one decision on sig before returning: Retry for authenticity and
// transient fetch failures, Ack for everything else. The ack fires as soon
// as nothing later in the pipeline could still request redelivery, so the
// provider's delivery timeout never triggers a duplicate.
func (e *Engine) ProcessWebhook(ctx context.Context, payload []byte, sigHeader string, sig *AckSignal) (*Result, error) {
	logger := xslog.FromContext(ctx)

	event, err := e.verifier.Verify(payload, sigHeader)
	if err != nil {
		sig.Retry()
		return nil, err
	}

	ctx = xslog.WithAttrs(ctx, xslog.EventType(string(event.Type)), xslog.EventID(event.ID))
	logger = xslog.FromContext(ctx)

	if !event.Type.Processable() {
		sig.Ack()
		logger.InfoContext(ctx, "ignoring webhook event outside allow-list")
		return &Result{Outcome: Unhandled}, nil
	}

	res, err := e.resolver.Resolve(ctx, event)
	if err != nil {
		if errors.Is(err, resolve.ErrFetchFailure) {
			sig.Retry()
			return nil, err
		}
		sig.Ack()
		logger.WarnContext(ctx, "metadata resolution failed, not retrying", xslog.Error(err))
		return nil, err
	}

	// Fetches succeeded; nothing past this point can change on redelivery.
	sig.Ack()

	ctx = xslog.WithAttrs(ctx, xslog.Hash(res.Metadata.Hash))
	logger = xslog.FromContext(ctx)

	info := e.calc.Compute(ctx, res)
	result := &Result{Metadata: res.Metadata, Amount: info}

	switch event.Type {
	case webhook.TypeChargeSucceeded:
		outcome, err := e.settlePaid(ctx, res, info)
		if err != nil {
			return nil, err
		}
		result.Outcome = outcome
	case webhook.TypeChargeRefunded:
		result.Outcome = Refunded
	case webhook.TypeRefundFailed:
		result.Outcome = RefundFailed
	case webhook.TypeChargeFailed:
		// Failed charges never settle; operators see the decline code in
		// the logs and the ledger record stays pending.
		logger.WarnContext(ctx, "charge failed", xslog.FailureCode(string(res.Charge.FailureCode)))
		result.Outcome = Unhandled
	}

	logger.InfoContext(ctx, "settled webhook event", xslog.Outcome(result.Outcome.String()))
	return result, nil
}

// ProcessRedirect handles the synchronous checkout-return confirmation: it
// fetches the session, confirms the provider considers it paid, and runs
// the same amount check as the webhook path.
func (e *Engine) ProcessRedirect(ctx context.Context, sessionID string) (*Result, error) {
	session, err := e.api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", resolve.ErrFetchFailure, sessionID, err)
	}

	md, ok := resolve.FromMap(session.Metadata)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", resolve.ErrMetadataMissing, sessionID)
	}

	ctx = xslog.WithAttrs(ctx, xslog.Hash(md.Hash))
	logger := xslog.FromContext(ctx)

	info := amount.FromSession(session)
	result := &Result{Metadata: md, Amount: info}

	switch session.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
	default:
		logger.WarnContext(ctx, "session not paid", xslog.PaymentStatus(string(session.PaymentStatus)))
		result.Outcome = Rejected(ReasonInvalidPaymentStatus)
		return result, nil
	}

	record, err := e.records.PaymentByHash(ctx, md.Hash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			logger.WarnContext(ctx, "no ledger record for session hash")
			result.Outcome = Rejected(ReasonInvalidPaymentStatus)
			return result, nil
		}
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}

	subscriptionID := md.SubscriptionID
	if subscriptionID == "" {
		subscriptionID = record.SubscriptionID
	}

	outcome, err := e.checkAmount(ctx, subscriptionID, info)
	if err != nil {
		return nil, err
	}
	result.Outcome = outcome

	logger.InfoContext(ctx, "settled redirect confirmation", xslog.Outcome(result.Outcome.String()))
	return result, nil
}

func (e *Engine) settlePaid(ctx context.Context, res *resolve.Resolution, info amount.Info) (Outcome, error) {
	logger := xslog.FromContext(ctx)

	if res.Charge.Status != "" && res.Charge.Status != "succeeded" {
		logger.WarnContext(ctx, "unrecognized charge status", xslog.PaymentStatus(string(res.Charge.Status)))
		return Rejected(ReasonInvalidPaymentStatus), nil
	}

	return e.checkAmount(ctx, res.Metadata.SubscriptionID, info)
}

// checkAmount compares the computed amount against the expected
// subscription price for the matched currency. Mismatches are rejected and
// never retried: the amount will not change on redelivery.
func (e *Engine) checkAmount(ctx context.Context, subscriptionID string, info amount.Info) (Outcome, error) {
	logger := xslog.FromContext(ctx)

	expected, err := e.prices.Price(ctx, subscriptionID, info.Currency)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			logger.WarnContext(ctx, "no expected price for currency",
				xslog.SubscriptionID(subscriptionID),
				xslog.Currency(info.Currency))
			return Rejected(ReasonInvalidPaymentAmount), nil
		}
		return Unhandled, fmt.Errorf("expected price lookup: %w", err)
	}

	paid := e.rules.FromMinorUnits(info.AmountMinor, info.Currency)
	if !paid.Equal(expected) {
		logger.WarnContext(ctx, "payment amount mismatch",
			xslog.SubscriptionID(subscriptionID),
			xslog.Currency(info.Currency),
			xslog.ExpectedAmount(expected.String()),
			xslog.PaidAmount(paid.String()))
		return Rejected(ReasonInvalidPaymentAmount), nil
	}

	return Paid, nil
}
