package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"city-plot-engine/internal/domain/ports/repository"
)

var _ repository.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore caches committed purchase receipts by request key so hot
// retries never reach Postgres. Misses are not errors; the durable arbiter is
// the transactions table.
type IdempotencyStore struct {
	client *redClient
	ttl    time.Duration
}

func NewIdempotencyStore(client *redClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string { return "purchase_idem:" + k }

func (s *IdempotencyStore) Get(ctx context.Context, key string) (*repository.PurchaseReceipt, error) {
	data, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var r repository.PurchaseReceipt
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, key string, r *repository.PurchaseReceipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl)
}
