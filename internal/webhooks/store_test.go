package webhooks

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DeliveryLogIsBounded(t *testing.T) {
	s := NewStore()
	sub := &Subscription{URL: "http://x", Events: []string{AllEvents}}
	s.Create(sub)

	for i := 0; i < maxDeliveries+10; i++ {
		s.RecordDelivery(Delivery{SubscriptionID: sub.ID, Attempt: i})
	}
	log, err := s.Deliveries(sub.ID)
	require.NoError(t, err)
	assert.Len(t, log, maxDeliveries)
	assert.Equal(t, 10, log[0].Attempt)
}

func TestStore_UnknownSubscription(t *testing.T) {
	s := NewStore()
	_, err := s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Deliveries(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	// Deliveries for unknown subscriptions are dropped.
	s.RecordDelivery(Delivery{SubscriptionID: uuid.New()})
}

func TestStore_ListPreservesOrder(t *testing.T) {
	s := NewStore()
	a := &Subscription{URL: "http://a", Events: []string{"x"}}
	b := &Subscription{URL: "http://b", Events: []string{"y"}}
	s.Create(a)
	s.Create(b)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "http://a", list[0].URL)
	assert.Equal(t, "http://b", list[1].URL)

	matched := s.ListByEvent("y")
	require.Len(t, matched, 1)
	assert.Equal(t, b.ID, matched[0].ID)
}
