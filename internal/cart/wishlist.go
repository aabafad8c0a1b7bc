package cart

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Wishlist stores the product IDs a shopper saved for later.
type Wishlist interface {
	Add(ctx context.Context, owner, productID string) error
	Remove(ctx context.Context, owner, productID string) error
	List(ctx context.Context, owner string) ([]string, error)
}

type redisWishlist struct {
	client *redis.Client
}

// NewRedisWishlist creates a wishlist backed by a Redis set per owner.
func NewRedisWishlist(client *redis.Client) Wishlist {
	return &redisWishlist{client: client}
}

func wishlistKey(owner string) string {
	return "wishlist:" + owner
}

func (w *redisWishlist) Add(ctx context.Context, owner, productID string) error {
	if err := w.client.SAdd(ctx, wishlistKey(owner), productID).Err(); err != nil {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	return nil
}

func (w *redisWishlist) Remove(ctx context.Context, owner, productID string) error {
	if err := w.client.SRem(ctx, wishlistKey(owner), productID).Err(); err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	return nil
}

// List returns the saved product IDs in ascending order.
func (w *redisWishlist) List(ctx context.Context, owner string) ([]string, error) {
	ids, err := w.client.SMembers(ctx, wishlistKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read wishlist: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
