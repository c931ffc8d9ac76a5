// Package bootstrap brings up the process-wide database and Redis
// connections shared by the server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"

	"pressroom/internal/cache"
	"pressroom/internal/config"
	"pressroom/internal/database"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to the database, applies the configured schema
// policy and connects to Redis. Redis is optional: when it is unreachable
// the returned client is nil and callers fall back to in-process delivery.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb = cache.InitRedis(cfg.RedisURL)
	}
	return db, rdb, nil
}
