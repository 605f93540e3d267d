// internal/presence/service.go

package presence

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

var onlineTransitions = promauto.NewCounterVec(
    prometheus.CounterOpts{
        Name: "presence_transitions_total",
        Help: "Total number of online/offline transitions",
    },
    []string{"state"},
)

// UserMirror copies presence transitions onto the durable user record
type UserMirror interface {
    UpdatePresence(ctx context.Context, userID string, online bool, lastSeen time.Time) error
}

type Service interface {
    SetOnline(ctx context.Context, userID string) error
    SetOffline(ctx context.Context, userID string) error
    Heartbeat(ctx context.Context, userID string) error
    Snapshot(ctx context.Context, userIDs []string) ([]*Presence, error)
}

type presenceService struct {
    store  Store
    mirror UserMirror
    bus    events.Publisher
}

func NewService(store Store, mirror UserMirror, bus events.Publisher) Service {
    return &presenceService{
        store:  store,
        mirror: mirror,
        bus:    bus,
    }
}

func (s *presenceService) SetOnline(ctx context.Context, userID string) error {
    now := time.Now().UTC()
    if err := s.store.SetOnline(ctx, userID, now); err != nil {
        return err
    }
    onlineTransitions.WithLabelValues("online").Inc()

    // Mirror and fan-out are best effort; the store is the source of truth
    if err := s.mirror.UpdatePresence(ctx, userID, true, now); err != nil {
        log.Printf("Error mirroring online status for %s: %v", userID, err)
    }
    s.publish(ctx, userID, true, now)
    return nil
}

func (s *presenceService) SetOffline(ctx context.Context, userID string) error {
    now := time.Now().UTC()
    if err := s.store.SetOffline(ctx, userID, now); err != nil {
        return err
    }
    onlineTransitions.WithLabelValues("offline").Inc()

    if err := s.mirror.UpdatePresence(ctx, userID, false, now); err != nil {
        log.Printf("Error mirroring offline status for %s: %v", userID, err)
    }
    s.publish(ctx, userID, false, now)
    return nil
}

// Heartbeat records activity for analytics on the configured interval.
// It is intentionally separate from the online/offline bit.
func (s *presenceService) Heartbeat(ctx context.Context, userID string) error {
    return s.store.Heartbeat(ctx, userID, time.Now().UTC())
}

func (s *presenceService) Snapshot(ctx context.Context, userIDs []string) ([]*Presence, error) {
    if len(userIDs) == 0 {
        return nil, fmt.Errorf("no user ids given")
    }
    return s.store.GetMany(ctx, userIDs)
}

func (s *presenceService) publish(ctx context.Context, userID string, online bool, at time.Time) {
    event := events.NewEvent(events.TypePresence, &Presence{
        UserID:   userID,
        IsOnline: online,
        LastSeen: at,
    })
    if err := s.bus.Publish(ctx, event); err != nil {
        log.Printf("Error publishing presence event: %v", err)
    }
}
