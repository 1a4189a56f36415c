package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
)

const (
	cacheNamespace  = "favorpay"
	defaultCacheTTL = 5 * time.Minute
)

type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// PaymentMethodCache stores the last fetched payment-method list per user.
// Entries expire after ttl and are dropped whenever the list changes.
type PaymentMethodCache struct {
	store cmdable
	ttl   time.Duration
}

func NewPaymentMethodCache(client *redis.Client, ttl time.Duration) *PaymentMethodCache {
	return newPaymentMethodCache(client, ttl)
}

func newPaymentMethodCache(store cmdable, ttl time.Duration) *PaymentMethodCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &PaymentMethodCache{store: store, ttl: ttl}
}

func (c *PaymentMethodCache) Get(ctx context.Context, key string) (*backend.PaymentMethodList, bool, error) {
	raw, err := c.store.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var list backend.PaymentMethodList
	if err := json.Unmarshal(raw, &list); err != nil {
		// Unreadable entries are treated as misses and overwritten on the next Set.
		return nil, false, nil
	}
	return &list, true, nil
}

func (c *PaymentMethodCache) Set(ctx context.Context, key string, list *backend.PaymentMethodList) error {
	if list == nil {
		return nil
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(key), payload, c.ttl).Err()
}

func (c *PaymentMethodCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Del(ctx, c.key(key)).Err()
}

func (c *PaymentMethodCache) key(key string) string {
	return cacheNamespace + ":" + key
}
