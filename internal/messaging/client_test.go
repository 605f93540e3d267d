// internal/messaging/client_test.go

package messaging

import (
    "sync"
    "testing"

    "github.com/stretchr/testify/assert"
)

// The hub closes a client's send channel when a newer connection for
// the same user replaces it, while reader goroutines may still be
// responding. Enqueueing after close must discard, never panic.
func TestClientEnqueueAfterCloseDoesNotPanic(t *testing.T) {
    client := NewClient(nil, nil, "alice", nil)

    var wg sync.WaitGroup
    for i := 0; i < 8; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for j := 0; j < 200; j++ {
                client.respond(WSTypeSend, map[string]string{"text": "hello"}, nil)
            }
        }()
    }

    client.close()
    wg.Wait()

    client.close()
}

func TestClientEnqueueDiscardsWhenClosed(t *testing.T) {
    client := NewClient(nil, nil, "alice", nil)
    client.close()

    client.enqueue([]byte(`{"type":"x"}`))

    // The channel was closed empty, so nothing was buffered
    payload, ok := <-client.send
    assert.False(t, ok)
    assert.Nil(t, payload)
}
