package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps slots as plain string keys under a prefix.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr, prefix string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client, prefix: prefix}
}

func (r *Redis) key(slot Slot) string {
	return r.prefix + string(slot)
}

// Get returns the value stored in slot.
func (r *Redis) Get(ctx context.Context, slot Slot) (string, bool, error) {
	v, err := r.Client.Get(ctx, r.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

// Set stores value in slot without expiry.
func (r *Redis) Set(ctx context.Context, slot Slot, value string) error {
	return r.Client.Set(ctx, r.key(slot), value, 0).Err()
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.Client.Close()
}
