// internal/messaging/websocket_test.go

package messaging

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestConfigureTimeouts(t *testing.T) {
    origWrite, origPong, origPing := writeWait, pongWait, pingPeriod
    defer func() {
        writeWait, pongWait, pingPeriod = origWrite, origPong, origPing
    }()

    ConfigureTimeouts(5*time.Second, 30*time.Second)
    assert.Equal(t, 5*time.Second, writeWait)
    assert.Equal(t, 30*time.Second, pongWait)
    assert.Equal(t, 27*time.Second, pingPeriod)

    // Zero values leave the windows untouched
    ConfigureTimeouts(0, 0)
    assert.Equal(t, 5*time.Second, writeWait)
    assert.Equal(t, 30*time.Second, pongWait)
}
