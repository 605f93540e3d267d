// internal/typing/coordinator_test.go

package typing

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

type fakeStore struct {
    typists map[string]map[string]bool
    failUp  bool
}

func newFakeStore() *fakeStore {
    return &fakeStore{typists: map[string]map[string]bool{}}
}

func (s *fakeStore) Upsert(ctx context.Context, conversationID, userID string, at time.Time) error {
    if s.failUp {
        return errors.New("store unavailable")
    }
    if s.typists[conversationID] == nil {
        s.typists[conversationID] = map[string]bool{}
    }
    s.typists[conversationID][userID] = true
    return nil
}

func (s *fakeStore) Delete(ctx context.Context, conversationID, userID string) error {
    delete(s.typists[conversationID], userID)
    return nil
}

func (s *fakeStore) Typists(ctx context.Context, conversationID string) ([]string, error) {
    out := make([]string, 0, len(s.typists[conversationID]))
    for userID := range s.typists[conversationID] {
        out = append(out, userID)
    }
    return out, nil
}

type fakeBus struct {
    published []events.Event
}

func (b *fakeBus) Publish(ctx context.Context, event events.Event) error {
    b.published = append(b.published, event)
    return nil
}

func TestStartPublishesScopedEvent(t *testing.T) {
    store := newFakeStore()
    bus := &fakeBus{}
    coord := NewCoordinator(store, bus)

    require.NoError(t, coord.Start(context.Background(), "alice_bob", "alice"))

    require.Len(t, bus.published, 1)
    assert.Equal(t, events.TypeTypingStart, bus.published[0].Type)
    assert.Equal(t, "alice_bob", bus.published[0].ConversationID)

    typists, err := coord.Typists(context.Background(), "alice_bob")
    require.NoError(t, err)
    assert.Equal(t, []string{"alice"}, typists)
}

func TestStopClearsAndPublishes(t *testing.T) {
    store := newFakeStore()
    bus := &fakeBus{}
    coord := NewCoordinator(store, bus)
    ctx := context.Background()

    require.NoError(t, coord.Start(ctx, "alice_bob", "alice"))
    require.NoError(t, coord.Stop(ctx, "alice_bob", "alice"))

    require.Len(t, bus.published, 2)
    assert.Equal(t, events.TypeTypingStop, bus.published[1].Type)

    typists, err := coord.Typists(ctx, "alice_bob")
    require.NoError(t, err)
    assert.Empty(t, typists)
}

func TestStopIsIdempotent(t *testing.T) {
    coord := NewCoordinator(newFakeStore(), &fakeBus{})
    ctx := context.Background()

    // Stopping without ever starting is a no-op, not an error
    assert.NoError(t, coord.Stop(ctx, "alice_bob", "alice"))
    assert.NoError(t, coord.Stop(ctx, "alice_bob", "alice"))
}

func TestStoreFailureSuppressesEvent(t *testing.T) {
    store := newFakeStore()
    store.failUp = true
    bus := &fakeBus{}
    coord := NewCoordinator(store, bus)

    assert.Error(t, coord.Start(context.Background(), "alice_bob", "alice"))
    assert.Empty(t, bus.published)
}

func TestTypistsAreScopedPerConversation(t *testing.T) {
    coord := NewCoordinator(newFakeStore(), &fakeBus{})
    ctx := context.Background()

    require.NoError(t, coord.Start(ctx, "alice_bob", "alice"))
    require.NoError(t, coord.Start(ctx, "alice_carol", "carol"))

    typists, err := coord.Typists(ctx, "alice_bob")
    require.NoError(t, err)
    assert.Equal(t, []string{"alice"}, typists)

    typists, err = coord.Typists(ctx, "alice_carol")
    require.NoError(t, err)
    assert.Equal(t, []string{"carol"}, typists)
}
