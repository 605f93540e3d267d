// internal/presence/redis.go
// Redis-backed presence store.
// Online bits live in a set, last-seen in a hash; both survive server
// restarts so a reconnecting instance sees consistent state. The
// compensating offline write for crashed clients comes from the hub's
// unregister path - the connection teardown is the disconnect hook.

package presence

import (
    "context"
    "fmt"
    "strconv"
    "time"

    "github.com/go-redis/redis/v8"
)

const (
    onlineSetKey    = "presence:online"
    lastSeenHashKey = "presence:last_seen"
    heartbeatKey    = "presence:heartbeat"
)

type redisStore struct {
    cli *redis.Client
}

func NewRedisStore(cli *redis.Client) Store {
    return &redisStore{cli: cli}
}

func (s *redisStore) SetOnline(ctx context.Context, userID string, at time.Time) error {
    pipe := s.cli.TxPipeline()
    pipe.SAdd(ctx, onlineSetKey, userID)
    pipe.HSet(ctx, lastSeenHashKey, userID, at.UnixMilli())
    if _, err := pipe.Exec(ctx); err != nil {
        return fmt.Errorf("presence set online: %w", err)
    }
    return nil
}

func (s *redisStore) SetOffline(ctx context.Context, userID string, at time.Time) error {
    pipe := s.cli.TxPipeline()
    pipe.SRem(ctx, onlineSetKey, userID)
    pipe.HSet(ctx, lastSeenHashKey, userID, at.UnixMilli())
    if _, err := pipe.Exec(ctx); err != nil {
        return fmt.Errorf("presence set offline: %w", err)
    }
    return nil
}

// Heartbeat stamps activity for analytics. It never flips the online
// bit - that is owned by the connection lifecycle.
func (s *redisStore) Heartbeat(ctx context.Context, userID string, at time.Time) error {
    if err := s.cli.HSet(ctx, heartbeatKey, userID, at.UnixMilli()).Err(); err != nil {
        return fmt.Errorf("presence heartbeat: %w", err)
    }
    return nil
}

func (s *redisStore) Get(ctx context.Context, userID string) (*Presence, error) {
    result, err := s.GetMany(ctx, []string{userID})
    if err != nil {
        return nil, err
    }
    return result[0], nil
}

func (s *redisStore) GetMany(ctx context.Context, userIDs []string) ([]*Presence, error) {
    if len(userIDs) == 0 {
        return nil, nil
    }

    pipe := s.cli.Pipeline()
    onlineCmds := make([]*redis.BoolCmd, len(userIDs))
    for i, id := range userIDs {
        onlineCmds[i] = pipe.SIsMember(ctx, onlineSetKey, id)
    }
    seenCmd := pipe.HMGet(ctx, lastSeenHashKey, userIDs...)

    if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
        return nil, fmt.Errorf("presence get: %w", err)
    }

    seen := seenCmd.Val()
    result := make([]*Presence, len(userIDs))
    for i, id := range userIDs {
        p := &Presence{UserID: id, IsOnline: onlineCmds[i].Val()}
        if i < len(seen) && seen[i] != nil {
            if str, ok := seen[i].(string); ok {
                if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
                    p.LastSeen = time.UnixMilli(ms).UTC()
                }
            }
        }
        result[i] = p
    }

    return result, nil
}
