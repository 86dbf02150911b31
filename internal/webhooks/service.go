package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Custody-Signature"

// MetricsRecorder is an optional callback for recording delivery outcomes.
type MetricsRecorder func(success bool)

// Service manages webhook subscriptions and event dispatching.
// It satisfies custody.EventDispatcher.
type Service struct {
	store      *Store
	httpClient *http.Client
	delays     []time.Duration
	onMetrics  MetricsRecorder
	inflight   sync.WaitGroup
	logger     *zap.Logger
}

// NewService creates a new webhook Service.
func NewService(store *Store, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Three attempts: immediately, then after 1s and 5s.
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second},
		logger: logger,
	}
}

// SetMetricsRecorder configures the metrics callback.
func (s *Service) SetMetricsRecorder(fn MetricsRecorder) {
	s.onMetrics = fn
}

// SetRetryDelays replaces the per-attempt delays. The number of attempts
// equals len(delays).
func (s *Service) SetRetryDelays(delays []time.Duration) {
	if len(delays) > 0 {
		s.delays = delays
	}
}

// Subscribe creates a subscription, generating a secret when none is supplied.
func (s *Service) Subscribe(_ context.Context, createdBy string, req *CreateSubscriptionRequest) (*Subscription, error) {
	secret := req.Secret
	if secret == "" {
		var err error
		if secret, err = generateSecret(); err != nil {
			return nil, fmt.Errorf("generate secret: %w", err)
		}
	}

	sub := &Subscription{
		URL:       req.URL,
		Events:    req.Events,
		Secret:    secret,
		CreatedBy: createdBy,
	}
	s.store.Create(sub)
	return sub, nil
}

// Unsubscribe deletes a subscription.
func (s *Service) Unsubscribe(_ context.Context, id uuid.UUID) error {
	return s.store.Delete(id)
}

// List returns all subscriptions.
func (s *Service) List(_ context.Context) []*Subscription {
	return s.store.List()
}

// Deliveries returns recent delivery attempts for a subscription.
func (s *Service) Deliveries(_ context.Context, id uuid.UUID) ([]Delivery, error) {
	return s.store.Deliveries(id)
}

// Dispatch fans out an event to all matching subscriptions. Deliveries run in
// the background; Wait blocks until they finish.
func (s *Service) Dispatch(ctx context.Context, eventType string, payload map[string]string) {
	subs := s.store.ListByEvent(eventType)
	if len(subs) == 0 {
		return
	}

	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	for _, sub := range subs {
		s.inflight.Add(1)
		go func(sub *Subscription) {
			defer s.inflight.Done()
			s.deliver(ctx, sub, event)
		}(sub)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// deliver sends the event to a single subscription with retries.
func (s *Service) deliver(ctx context.Context, sub *Subscription, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("webhook: marshal event", zap.Error(err))
		return
	}

	signature := signPayload(body, sub.Secret)

	for attempt, delay := range s.delays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		success, statusCode, errMsg := s.doDelivery(ctx, sub.URL, body, signature)

		s.store.RecordDelivery(Delivery{
			SubscriptionID: sub.ID,
			EventID:        event.ID,
			EventType:      event.Type,
			StatusCode:     statusCode,
			Attempt:        attempt + 1,
			Success:        success,
			ErrorMessage:   errMsg,
			DeliveredAt:    time.Now().UTC(),
		})

		if s.onMetrics != nil {
			s.onMetrics(success)
		}

		if success {
			return
		}

		s.logger.Warn("webhook: delivery failed",
			zap.String("url", sub.URL),
			zap.String("event", event.Type),
			zap.Int("attempt", attempt+1),
			zap.String("error", errMsg),
		)
	}
}

// doDelivery performs a single HTTP POST delivery.
func (s *Service) doDelivery(ctx context.Context, url string, body []byte, signature string) (bool, int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, 0, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024)) //nolint:errcheck

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	errMsg := ""
	if !success {
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return success, resp.StatusCode, errMsg
}

// VerifySignature reports whether signature is the HMAC of body under secret.
// Subscribers use it to authenticate deliveries.
func VerifySignature(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(signPayload(body, secret)), []byte(signature))
}

// signPayload computes an HMAC-SHA256 signature.
func signPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// generateSecret creates a random 32-byte hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
