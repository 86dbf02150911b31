package webhooks

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a webhook subscription is not found.
var ErrNotFound = errors.New("webhook subscription not found")

// maxDeliveries bounds the delivery log kept per subscription.
const maxDeliveries = 100

// Store keeps subscriptions and recent deliveries in memory.
type Store struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	order      []uuid.UUID
	deliveries map[uuid.UUID][]Delivery
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		subs:       make(map[uuid.UUID]*Subscription),
		deliveries: make(map[uuid.UUID][]Delivery),
	}
}

// Create assigns an ID and stores sub.
func (s *Store) Create(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now().UTC()
	sub.Active = true
	cp := *sub
	s.subs[sub.ID] = &cp
	s.order = append(s.order, sub.ID)
}

// Get returns a copy of the subscription with id.
func (s *Store) Get(id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// List returns all subscriptions in creation order.
func (s *Store) List() []*Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.subs[id]
		out = append(out, &cp)
	}
	return out
}

// ListByEvent returns active subscriptions matching eventType.
func (s *Store) ListByEvent(eventType string) []*Subscription {
	var out []*Subscription
	for _, sub := range s.List() {
		if sub.Matches(eventType) {
			out = append(out, sub)
		}
	}
	return out
}

// Delete removes a subscription and its delivery log.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return ErrNotFound
	}
	delete(s.subs, id)
	delete(s.deliveries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// RecordDelivery appends d to the subscription's log, keeping the newest entries.
func (s *Store) RecordDelivery(d Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[d.SubscriptionID]; !ok {
		return
	}
	log := append(s.deliveries[d.SubscriptionID], d)
	if len(log) > maxDeliveries {
		log = log[len(log)-maxDeliveries:]
	}
	s.deliveries[d.SubscriptionID] = log
}

// Deliveries returns the delivery log for a subscription, oldest first.
func (s *Store) Deliveries(id uuid.UUID) ([]Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.subs[id]; !ok {
		return nil, ErrNotFound
	}
	out := make([]Delivery, len(s.deliveries[id]))
	copy(out, s.deliveries[id])
	return out, nil
}
