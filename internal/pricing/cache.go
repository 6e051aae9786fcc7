// Package pricing caches the ledger's subscription price table. Every Paid
// settlement performs a price lookup, so reads go through Redis with
// in-process request collapsing; the ledger stays the source of truth.
package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/garrettladley/settle/internal/xslog"
)

const cacheKeyPrefix = "settle:price:"

// Source is the uncached price lookup, satisfied by ledger.Store.
type Source interface {
	Price(ctx context.Context, subscriptionID, currency string) (decimal.Decimal, error)
}

type Cache struct {
	source Source
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

var _ Source = (*Cache)(nil)

// NewCache wraps source with a read-through Redis cache. A nil client
// disables the Redis layer but keeps request collapsing.
func NewCache(source Source, client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{source: source, client: client, ttl: ttl}
}

func cacheKey(subscriptionID, currency string) string {
	return cacheKeyPrefix + subscriptionID + ":" + strings.ToLower(currency)
}

func (c *Cache) Price(ctx context.Context, subscriptionID, currency string) (decimal.Decimal, error) {
	key := cacheKey(subscriptionID, currency)

	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Result()
		if err == nil {
			if price, perr := decimal.NewFromString(raw); perr == nil {
				return price, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Cache trouble degrades to a ledger read.
			xslog.FromContext(ctx).WarnContext(ctx, "price cache read failed",
				xslog.Component("pricing"),
				xslog.Error(err))
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		price, err := c.source.Price(ctx, subscriptionID, currency)
		if err != nil {
			return decimal.Decimal{}, err
		}
		if c.client != nil {
			if err := c.client.Set(ctx, key, price.String(), c.ttl).Err(); err != nil {
				xslog.FromContext(ctx).WarnContext(ctx, "price cache write failed",
					xslog.Component("pricing"),
					xslog.Error(err))
			}
		}
		return price, nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return v.(decimal.Decimal), nil
}
