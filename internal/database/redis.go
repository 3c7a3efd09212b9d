package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"produce-market/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns a client for cfg along with the result of an initial
// ping. The client is usable even when the ping fails; callers decide
// whether to fall back to in-process implementations.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}
