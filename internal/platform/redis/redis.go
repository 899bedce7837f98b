// Package redis provides the shared presence store backed by Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/taskflow-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to the configured Redis server and pings it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
