package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// KV: adapter tipis di atas client utk caller yang cuma butuh get/set
// string dengan TTL (status cache, idempotency key).
type KV struct{ Client *redis.Client }

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	return k.Client.Get(ctx, key).Result()
}

func (k *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return k.Client.Set(ctx, key, value, ttl).Err()
}

// Deduper: penanda event_id yang sudah diproses satu service, dengan TTL.
// Implementasi notifier.Dedup.
type Deduper struct {
	Client  *redis.Client
	Service string
}

func (d *Deduper) key(id string) string { return fmt.Sprintf(KeyDedup, d.Service, id) }

func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	return Exists(ctx, d.Client, d.key(id))
}

func (d *Deduper) Mark(ctx context.Context, id string) error {
	return d.Client.Set(ctx, d.key(id), "1", TTLDedup).Err()
}
