// internal/messaging/websocket.go

package messaging

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/gorilla/websocket"
)

var errUnknownTopic = errors.New("unknown topic")

// Keepalive windows, overridable from config before clients connect
var (
    // Time allowed to write a message to the peer
    writeWait = 10 * time.Second

    // Time allowed to read the next pong message from the peer
    pongWait = 60 * time.Second

    // Send pings to peer with this period (must be less than pongWait)
    pingPeriod = (pongWait * 9) / 10
)

// Maximum message size allowed from peer
const maxMessageSize = 64 * 1024 // 64KB

// ConfigureTimeouts sets the websocket keepalive windows. Call once at
// startup, before the hub accepts its first connection.
func ConfigureTimeouts(write, pong time.Duration) {
    if write > 0 {
        writeWait = write
    }
    if pong > 0 {
        pongWait = pong
        pingPeriod = (pong * 9) / 10
    }
}

// Subscription topics a client can ask for
const (
    TopicConversations = "conversations"
    TopicRequests      = "requests"

    topicConversationPrefix = "conversation:"
)

// Upgrader for WebSocket connections
var upgrader = websocket.Upgrader{
    ReadBufferSize:  1024,
    WriteBufferSize: 1024,
    CheckOrigin: func(r *http.Request) bool {
        // In production, implement proper CORS checking
        // For now, accept all origins
        return true
    },
}

// Inbound frame types
const (
    WSTypeSubscribe   = "subscribe"
    WSTypeUnsubscribe = "unsubscribe"
    WSTypeSend        = "message.send"
    WSTypeDelivered   = "message.delivered"
    WSTypeSeen        = "message.seen"
    WSTypeReact       = "message.react"
    WSTypeDeleteForMe = "message.delete_for_me"
    WSTypeDeleteAll   = "message.delete_for_everyone"
    WSTypeTypingStart = "typing.start"
    WSTypeTypingStop  = "typing.stop"
    WSTypeHeartbeat   = "heartbeat"
)

// Outbound snapshot frame types, sent once right after a subscribe so
// the client starts from current state before the update stream
const (
    WSTypeConversationsSnapshot = "snapshot.conversations"
    WSTypeMessagesSnapshot      = "snapshot.messages"
    WSTypeRequestsSnapshot      = "snapshot.requests"
    WSTypeTypingSnapshot        = "snapshot.typing"
)

// WSTypeHello greets a freshly registered connection with the
// heartbeat cadence the server expects
const WSTypeHello = "hello"

// WSMessage is the frame exchanged over the websocket in both
// directions
type WSMessage struct {
    Type      string          `json:"type"`
    Topic     string          `json:"topic,omitempty"`
    Data      json.RawMessage `json:"data,omitempty"`
    Timestamp time.Time       `json:"timestamp,omitempty"`
}

// WSError represents a WebSocket error message
type WSError struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

// WSResponse wraps a WebSocket response to a client operation
type WSResponse struct {
    Type      string          `json:"type"`
    Success   bool            `json:"success"`
    Data      json.RawMessage `json:"data,omitempty"`
    Error     *WSError        `json:"error,omitempty"`
    Timestamp time.Time       `json:"timestamp"`
}

// CreateWSResponse creates a WebSocket response
func CreateWSResponse(msgType string, data interface{}, err error) WSResponse {
    response := WSResponse{
        Type:      msgType,
        Success:   err == nil,
        Timestamp: time.Now(),
    }

    if err != nil {
        response.Error = &WSError{
            Code:    "ERROR",
            Message: err.Error(),
        }
    } else if data != nil {
        response.Data = mustMarshalJSON(data)
    }

    return response
}

// mustMarshalJSON marshals data to JSON, logging on failure
func mustMarshalJSON(v interface{}) json.RawMessage {
    data, err := json.Marshal(v)
    if err != nil {
        log.Printf("Failed to marshal data: %v", err)
        return json.RawMessage(`{}`)
    }
    return data
}

func conversationTopic(conversationID string) string {
    return topicConversationPrefix + conversationID
}
