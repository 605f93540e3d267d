// internal/messaging/hub_test.go

package messaging

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

type fakePresence struct{}

func (fakePresence) SetOnline(ctx context.Context, userID string) error  { return nil }
func (fakePresence) SetOffline(ctx context.Context, userID string) error { return nil }
func (fakePresence) Heartbeat(ctx context.Context, userID string) error  { return nil }

type fakeHubBus struct {
    fakeBus
}

func (b *fakeHubBus) Subscribe(ctx context.Context) (<-chan events.Event, func(), error) {
    ch := make(chan events.Event)
    return ch, func() { close(ch) }, nil
}

func TestRegisterSendsHelloFrame(t *testing.T) {
    hub := NewHub(nil, fakePresence{}, &fakeHubBus{}, 5*time.Minute)
    client := NewClient(hub, nil, "alice", nil)

    hub.registerClient(client)
    defer hub.Shutdown()

    select {
    case payload := <-client.send:
        var frame WSMessage
        require.NoError(t, json.Unmarshal(payload, &frame))
        assert.Equal(t, WSTypeHello, frame.Type)
        assert.Contains(t, string(frame.Data), "5m0s")
    default:
        t.Fatal("expected a hello frame on register")
    }
}

func TestDuplicateConnectionReplacesOld(t *testing.T) {
    hub := NewHub(nil, fakePresence{}, &fakeHubBus{}, time.Minute)
    first := NewClient(hub, nil, "alice", nil)
    second := NewClient(hub, nil, "alice", nil)

    hub.registerClient(first)
    hub.registerClient(second)
    defer hub.Shutdown()

    assert.Equal(t, 1, hub.GetActiveConnections())
    assert.True(t, hub.IsUserOnline("alice"))

    // The replaced connection is closed; a late response on it is
    // discarded instead of panicking on its channel
    first.respond(WSTypeSend, map[string]string{"text": "late"}, nil)

    // Unregistering the stale connection leaves the new one in place
    hub.unregisterClient(first)
    assert.Equal(t, 1, hub.GetActiveConnections())
}
