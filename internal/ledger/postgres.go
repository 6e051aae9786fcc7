package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) PaymentByHash(ctx context.Context, hash string) (*Record, error) {
	const query = `
		SELECT hash, user_id, subscription_id, source, created_at
		FROM payments
		WHERE hash = $1`

	var r Record
	err := s.pool.QueryRow(ctx, query, hash).
		Scan(&r.Hash, &r.UserID, &r.SubscriptionID, &r.Source, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payment by hash: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Price(ctx context.Context, subscriptionID, currency string) (decimal.Decimal, error) {
	const query = `
		SELECT price::text
		FROM subscription_prices
		WHERE subscription_id = $1 AND currency = $2`

	var raw string
	err := s.pool.QueryRow(ctx, query, subscriptionID, currency).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("price lookup: %w", err)
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing price %q: %w", raw, err)
	}
	return price, nil
}

func (s *PostgresStore) ActiveRemoteSubscriptions(ctx context.Context, userID, subscriptionID string) ([]RemoteSubscription, error) {
	const query = `
		SELECT id, user_id, subscription_id, active
		FROM remote_subscriptions
		WHERE user_id = $1 AND subscription_id = $2 AND active`

	rows, err := s.pool.Query(ctx, query, userID, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("active remote subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []RemoteSubscription
	for rows.Next() {
		var sub RemoteSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.SubscriptionID, &sub.Active); err != nil {
			return nil, fmt.Errorf("scanning remote subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active remote subscriptions: %w", err)
	}
	return subs, nil
}

func (s *PostgresStore) MarkRemoteSubscriptionCanceled(ctx context.Context, id string) error {
	const query = `
		UPDATE remote_subscriptions
		SET active = FALSE, canceled_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark remote subscription canceled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
