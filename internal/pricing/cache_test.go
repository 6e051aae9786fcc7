package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type countingSource struct {
	calls atomic.Int64
	delay time.Duration
	price decimal.Decimal
	err   error
}

func (s *countingSource) Price(context.Context, string, string) (decimal.Decimal, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.price, s.err
}

func TestCachePassThrough(t *testing.T) {
	t.Parallel()

	source := &countingSource{price: decimal.RequireFromString("25.00")}
	cache := NewCache(source, nil, time.Minute)

	price, err := cache.Price(t.Context(), "sub_9", "usd")
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimal.RequireFromString("25")) {
		t.Errorf("price = %s, want 25", price)
	}
}

func TestCacheSourceError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("ledger unavailable")
	cache := NewCache(&countingSource{err: wantErr}, nil, time.Minute)

	if _, err := cache.Price(t.Context(), "sub_9", "usd"); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	source := &countingSource{price: decimal.RequireFromString("25.00"), delay: 50 * time.Millisecond}
	cache := NewCache(source, nil, time.Minute)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Price(context.Background(), "sub_9", "usd"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := source.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}
