package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Store persists carts.
type Store interface {
	// Get returns the owner's cart, or an empty cart when none is stored.
	Get(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, owner string) error
}

// redisStore keeps each cart as a JSON document under cart:<owner>.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewRedisStore creates a cart store. Saving a cart refreshes its TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "cart-store").Logger(),
	}
}

func cartKey(owner string) string {
	return "cart:" + owner
}

// Get returns the owner's cart.
func (s *redisStore) Get(ctx context.Context, owner string) (*Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(owner), nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Msg("failed to read cart")
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	c := New(owner)
	if err := json.Unmarshal(raw, c); err != nil {
		s.logger.Warn().Err(err).Str("owner", owner).Msg("discarding unreadable cart")
		return New(owner), nil
	}
	c.Owner = owner
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return c, nil
}

// Save writes the cart and refreshes its expiry.
func (s *redisStore) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	if err := s.client.Set(ctx, cartKey(c.Owner), raw, s.ttl).Err(); err != nil {
		s.logger.Error().Err(err).Str("owner", c.Owner).Msg("failed to save cart")
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Delete removes the owner's cart.
func (s *redisStore) Delete(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Msg("failed to delete cart")
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
