// internal/domain/sales/idempotency.go
package sales

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix  = "sale:idem:"
	idempotencyKeyPending = "pending"
	idempotencyKeyExpiry  = 24 * time.Hour
)

// IdempotencyStore reserves idempotency keys and maps them to created sales.
// Claim returns ("", true) when the key was newly reserved; the caller must
// then either Settle it with the created sale's ID or Release it on failure.
// A key already held returns its stored value: the pending marker while the
// first request is in flight, or the sale ID once settled.
type IdempotencyStore interface {
	Claim(key string) (value string, acquired bool, err error)
	Settle(key string, saleID uint) error
	Release(key string) error
}

type redisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore backs an IdempotencyStore with Redis. A nil
// client returns nil, disabling idempotency protection.
func NewRedisIdempotencyStore(client *redis.Client) IdempotencyStore {
	if client == nil {
		return nil
	}
	return &redisIdempotencyStore{client: client}
}

func (r *redisIdempotencyStore) Claim(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	acquired, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, idempotencyKeyPending, idempotencyKeyExpiry).Result()
	if err != nil {
		return "", false, err
	}
	if acquired {
		return "", true, nil
	}

	value, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		return "", false, err
	}
	return value, false, nil
}

func (r *redisIdempotencyStore) Settle(key string, saleID uint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return r.client.Set(ctx, idempotencyKeyPrefix+key, strconv.FormatUint(uint64(saleID), 10), idempotencyKeyExpiry).Err()
}

func (r *redisIdempotencyStore) Release(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
