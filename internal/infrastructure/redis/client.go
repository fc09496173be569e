package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const (
	pingRetries         = 3
	pingInitialInterval = 50 * time.Millisecond
	pingMaxInterval     = time.Second
)

// NewClient creates a new Redis client. The initial ping is retried with
// exponential backoff so a server that is still starting does not fail
// the process.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pingInitialInterval
	b.MaxInterval = pingMaxInterval

	ping := func() error {
		return client.Ping(ctx).Err()
	}

	// Verify connection
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(b, pingRetries), ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
