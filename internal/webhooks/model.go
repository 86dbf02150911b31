package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// AllEvents subscribes to every event type.
const AllEvents = "*"

// Subscription is an HTTP endpoint that receives custody events.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"` // never returned in API responses
	Active    bool      `json:"active"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Matches reports whether the subscription wants eventType.
func (s *Subscription) Matches(eventType string) bool {
	if !s.Active {
		return false
	}
	for _, e := range s.Events {
		if e == AllEvents || e == eventType {
			return true
		}
	}
	return false
}

// Event is the JSON body POSTed to subscribers.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Delivery records the outcome of a single delivery attempt.
type Delivery struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	EventID        uuid.UUID `json:"event_id"`
	EventType      string    `json:"event_type"`
	StatusCode     int       `json:"status_code"`
	Attempt        int       `json:"attempt"`
	Success        bool      `json:"success"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

// CreateSubscriptionRequest is the payload for creating a subscription.
// Secret is optional; one is generated when empty.
type CreateSubscriptionRequest struct {
	URL    string   `json:"url"    yaml:"url"    mapstructure:"url"    binding:"required,url"`
	Events []string `json:"events" yaml:"events" mapstructure:"events" binding:"required,min=1"`
	Secret string   `json:"secret" yaml:"secret" mapstructure:"secret"`
}
