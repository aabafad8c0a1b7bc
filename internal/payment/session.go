package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/redis/go-redis/v9"
)

// Session is an in-flight gateway checkout. It only lives in Redis; the
// order table never sees a checkout until payment is verified.
type Session struct {
	GatewayOrderID string                   `json:"gatewayOrderId"`
	UserID         string                   `json:"userId"`
	CartOwner      string                   `json:"cartOwner"`
	Request        model.OrderCreateRequest `json:"request"`
	Amount         int64                    `json:"amount"`
	Currency       string                   `json:"currency"`
	State          model.CheckoutState      `json:"state"`
	CreatedAt      time.Time                `json:"createdAt"`
}

var sessionTransitions = map[model.CheckoutState]map[model.CheckoutState]bool{
	model.CheckoutInitiated: {
		model.CheckoutAuthorized: true,
		model.CheckoutFailed:     true,
	},
	model.CheckoutAuthorized: {
		model.CheckoutVerified: true,
		model.CheckoutFailed:   true,
	},
	model.CheckoutVerified: {
		model.CheckoutOrderCreated: true,
	},
}

// Advance moves the session to next, or fails if the step is not allowed.
func (s *Session) Advance(next model.CheckoutState) error {
	if !sessionTransitions[s.State][next] {
		return fmt.Errorf("checkout %s cannot move from %s to %s", s.GatewayOrderID, s.State, next)
	}
	s.State = next
	return nil
}

// SessionStore persists checkout sessions.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	// Get returns nil when the session does not exist or has expired.
	Get(ctx context.Context, gatewayOrderID string) (*Session, error)
	Delete(ctx context.Context, gatewayOrderID string) error
}

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a session store whose entries expire after ttl.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "checkout:" + id
}

func (s *redisSessionStore) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(sess.GatewayOrderID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &sess, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkout session: %w", err)
	}
	return nil
}
