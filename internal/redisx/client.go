package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Dedup marks processed delivery and event ids. Claim is a SetNX, so two
// concurrent duplicates cannot both win. Release frees a claim whose
// processing failed, letting the platform's retry through.
type Dedup struct {
	Client *redis.Client
	TTL    time.Duration
}

func (d *Dedup) Claim(ctx context.Context, key string) (bool, error) {
	return d.Client.SetNX(ctx, key, "1", d.TTL).Result()
}

func (d *Dedup) Release(ctx context.Context, key string) error {
	return d.Client.Del(ctx, key).Err()
}
