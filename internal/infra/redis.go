package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the cache used for idempotent replays and login throttling.
func NewRedisClient(ctx context.Context, url, appName string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis: %w", ErrMissingURL)
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = appName
	}
	opt.DialTimeout = 3 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second

	client := redis.NewClient(opt)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := waitReady(ctx, "redis", ping); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
