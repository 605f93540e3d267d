// internal/events/redis.go
// Redis pub/sub implementation of the event bus.
// One channel carries every event; each server instance subscribes
// once and routes to its own websocket clients.

package events

import (
    "context"
    "encoding/json"
    "fmt"
    "log"

    "github.com/go-redis/redis/v8"
)

const channelName = "coordination:events"

type redisBus struct {
    client *redis.Client
}

// NewRedisBus creates an event bus backed by Redis pub/sub
func NewRedisBus(client *redis.Client) Bus {
    return &redisBus{client: client}
}

func (b *redisBus) Publish(ctx context.Context, event Event) error {
    data, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    if err := b.client.Publish(ctx, channelName, data).Err(); err != nil {
        return fmt.Errorf("publish event: %w", err)
    }

    return nil
}

func (b *redisBus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
    pubsub := b.client.Subscribe(ctx, channelName)

    // Confirm the subscription before handing the channel out
    if _, err := pubsub.Receive(ctx); err != nil {
        pubsub.Close()
        return nil, nil, fmt.Errorf("subscribe: %w", err)
    }

    out := make(chan Event, 256)

    go func() {
        defer close(out)
        for msg := range pubsub.Channel() {
            var event Event
            if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
                log.Printf("Error unmarshalling event: %v", err)
                continue
            }
            select {
            case out <- event:
            default:
                // Slow consumer; drop rather than block the pub/sub reader
                log.Printf("Event bus consumer is behind, dropping %s event", event.Type)
            }
        }
    }()

    cancel := func() {
        pubsub.Close()
    }

    return out, cancel, nil
}
