// internal/common/database/redis.go
// Redis carries all ephemeral coordination state: presence bits,
// typing records and the pub/sub event bus. The process refuses to
// start without it.

package database

import (
    "context"
    "fmt"

    "github.com/go-redis/redis/v8"
)

// NewRedisClientFromURL connects using a redis:// URL and verifies the
// connection with a ping
func NewRedisClientFromURL(redisURL string) (*redis.Client, error) {
    opts, err := redis.ParseURL(redisURL)
    if err != nil {
        return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
    }

    client := redis.NewClient(opts)

    if err := client.Ping(context.Background()).Err(); err != nil {
        return nil, fmt.Errorf("failed to connect to Redis: %w", err)
    }

    return client, nil
}
