package ledger

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]Record
	prices   map[string]decimal.Decimal
	remotes  map[string]RemoteSubscription
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[string]Record),
		prices:   make(map[string]decimal.Decimal),
		remotes:  make(map[string]RemoteSubscription),
	}
}

func priceKey(subscriptionID, currency string) string {
	return subscriptionID + ":" + strings.ToLower(currency)
}

func (s *MemoryStore) AddPayment(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[r.Hash] = r
}

func (s *MemoryStore) SetPrice(subscriptionID, currency string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[priceKey(subscriptionID, currency)] = price
}

func (s *MemoryStore) AddRemoteSubscription(sub RemoteSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remotes[sub.ID] = sub
}

func (s *MemoryStore) PaymentByHash(_ context.Context, hash string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.payments[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) Price(_ context.Context, subscriptionID, currency string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[priceKey(subscriptionID, currency)]
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	return price, nil
}

func (s *MemoryStore) ActiveRemoteSubscriptions(_ context.Context, userID, subscriptionID string) ([]RemoteSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []RemoteSubscription
	for _, sub := range s.remotes {
		if sub.Active && sub.UserID == userID && sub.SubscriptionID == subscriptionID {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *MemoryStore) MarkRemoteSubscriptionCanceled(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.remotes[id]
	if !ok {
		return ErrNotFound
	}
	sub.Active = false
	s.remotes[id] = sub
	return nil
}
