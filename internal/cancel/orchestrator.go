// Package cancel tears down a user's remote subscriptions after a refund or
// a rejected settlement. Remote cancellation is best effort: the ledger is
// only updated for subscriptions the provider confirms as canceled.
package cancel

import (
	"context"

	"github.com/stripe/stripe-go/v74"

	"github.com/garrettladley/settle/internal/ledger"
	"github.com/garrettladley/settle/internal/provider"
	"github.com/garrettladley/settle/internal/xslog"
)

type Orchestrator struct {
	api   provider.API
	store ledger.Store
}

func New(api provider.API, store ledger.Store) *Orchestrator {
	return &Orchestrator{api: api, store: store}
}

// CancelAll cancels every active remote subscription for the user and
// subscription pair. It keeps going past individual failures and reports
// whether every subscription ended up canceled. A panic anywhere in the
// batch is contained here so the settlement that triggered it still
// completes.
func (o *Orchestrator) CancelAll(ctx context.Context, userID, subscriptionID string) (ok bool) {
	logger := xslog.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic during remote cancellation", xslog.ErrorGroupWithStack(r))
			ok = false
		}
	}()

	subs, err := o.store.ActiveRemoteSubscriptions(ctx, userID, subscriptionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list remote subscriptions",
			xslog.UserID(userID),
			xslog.SubscriptionID(subscriptionID),
			xslog.Error(err))
		return false
	}
	if len(subs) == 0 {
		return true
	}

	logger.InfoContext(ctx, "canceling remote subscriptions",
		xslog.UserID(userID),
		xslog.SubscriptionID(subscriptionID),
		xslog.Count(len(subs)))

	ok = true
	for _, sub := range subs {
		remote, err := o.api.CancelSubscription(ctx, sub.ID)
		if err != nil {
			logger.ErrorContext(ctx, "remote cancellation failed",
				xslog.SubscriptionID(sub.ID),
				xslog.Error(err))
			ok = false
			continue
		}
		if remote.Status != stripe.SubscriptionStatusCanceled {
			logger.WarnContext(ctx, "remote subscription not canceled",
				xslog.SubscriptionID(sub.ID),
				xslog.PaymentStatus(string(remote.Status)))
			ok = false
			continue
		}
		if err := o.store.MarkRemoteSubscriptionCanceled(ctx, sub.ID); err != nil {
			logger.ErrorContext(ctx, "failed to record cancellation",
				xslog.SubscriptionID(sub.ID),
				xslog.Error(err))
			ok = false
		}
	}
	return ok
}
