// Package ledger is the read/write surface onto the external billing
// ledger. The ledger owns persistence and idempotency (keyed by the
// correlation hash); this service only consumes it.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("ledger: not found")

// Record is a ledger payment record, keyed by the correlation hash the
// checkout initiation flow embedded in provider metadata.
type Record struct {
	Hash           string
	UserID         string
	SubscriptionID string
	Source         string
	CreatedAt      time.Time
}

// RemoteSubscription is a provider-side subscription tracked locally for
// lifecycle management.
type RemoteSubscription struct {
	ID             string
	UserID         string
	SubscriptionID string
	Active         bool
}

type Store interface {
	// PaymentByHash returns the payment record for a correlation hash.
	// Returns ErrNotFound when no record exists.
	PaymentByHash(ctx context.Context, hash string) (*Record, error)

	// Price returns the expected subscription price in major units for
	// the given subscription plan and ISO-4217 currency code.
	// Returns ErrNotFound when the plan has no price in that currency.
	Price(ctx context.Context, subscriptionID, currency string) (decimal.Decimal, error)

	// ActiveRemoteSubscriptions lists the provider-side subscriptions
	// still flagged active for a (user, plan) pair.
	ActiveRemoteSubscriptions(ctx context.Context, userID, subscriptionID string) ([]RemoteSubscription, error)

	// MarkRemoteSubscriptionCanceled clears the local active flag. Called
	// only after the provider confirms the canceled state.
	MarkRemoteSubscriptionCanceled(ctx context.Context, id string) error
}
