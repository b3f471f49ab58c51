package store

import (
	"context"
	"fmt"

	"attendly/internal/config"
)

// Open builds the KV backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg config.App) (KV, error) {
	switch cfg.StorageBackend {
	case "sqlite", "":
		db, err := NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "redis":
		r := NewRedis(cfg.RedisAddr, cfg.RedisPrefix)
		if !r.Healthy(ctx) {
			r.Close()
			return nil, fmt.Errorf("redis %s not reachable", cfg.RedisAddr)
		}
		return r, nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StorageBackend)
	}
}
