// internal/typing/redis.go

package typing

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/go-redis/redis/v8"
)

type redisStore struct {
    cli *redis.Client
    ttl time.Duration
}

// NewRedisStore creates a typing store with the given record TTL
func NewRedisStore(cli *redis.Client, ttl time.Duration) Store {
    return &redisStore{cli: cli, ttl: ttl}
}

func key(conversationID, userID string) string {
    return fmt.Sprintf("typing:%s:%s", conversationID, userID)
}

func (s *redisStore) Upsert(ctx context.Context, conversationID, userID string, at time.Time) error {
    return s.cli.Set(ctx, key(conversationID, userID), at.UnixMilli(), s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, conversationID, userID string) error {
    return s.cli.Del(ctx, key(conversationID, userID)).Err()
}

// Typists scans the conversation's typing keys. The keyspace per
// conversation is bounded by the roster size, so SCAN stays cheap.
func (s *redisStore) Typists(ctx context.Context, conversationID string) ([]string, error) {
    pattern := fmt.Sprintf("typing:%s:*", conversationID)
    prefix := fmt.Sprintf("typing:%s:", conversationID)

    var typists []string
    iter := s.cli.Scan(ctx, 0, pattern, 100).Iterator()
    for iter.Next(ctx) {
        typists = append(typists, strings.TrimPrefix(iter.Val(), prefix))
    }
    if err := iter.Err(); err != nil {
        return nil, fmt.Errorf("typing scan: %w", err)
    }

    return typists, nil
}
