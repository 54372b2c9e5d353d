package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"aquawatch/internal/config"
	"aquawatch/internal/database"
)

// Open builds the KV selected by STORE_DRIVER. The returned close func releases
// the underlying connection and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case "", "file":
		logger.Info("Using file store", zap.String("path", cfg.Store.Path))
		return NewFileKV(cfg.Store.Path), noop, nil

	case "memory":
		logger.Warn("Using in-memory store, settings are lost on exit")
		return NewMemoryKV(), noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("Using redis store", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
		return NewRedisKV(client, 0), client.Close, nil

	case "postgres":
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		kv := NewPostgresKV(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		logger.Info("Using postgres store",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
		return kv, func() error { return database.Close(db) }, nil

	default:
		return nil, noop, fmt.Errorf("unknown STORE_DRIVER: %s", cfg.Store.Driver)
	}
}
