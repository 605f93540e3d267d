// internal/messaging/client.go

package messaging

import (
    "context"
    "encoding/json"
    "log"
    "strings"
    "sync"
    "time"

    "github.com/gorilla/websocket"
)

// Client represents a websocket client
type Client struct {
    hub     *Hub
    conn    *websocket.Conn
    send    chan []byte
    userID  string
    service Service

    // subsMux also guards closed: enqueue holds the read lock while
    // sending, close takes the write lock before closing the channel,
    // so no goroutine can send on a closed channel
    subscriptions map[string]bool
    closed        bool
    subsMux       sync.RWMutex

    closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, service Service) *Client {
    return &Client{
        hub:           hub,
        conn:          conn,
        send:          make(chan []byte, 256),
        userID:        userID,
        service:       service,
        subscriptions: make(map[string]bool),
    }
}

func (c *Client) Start() {
    go c.writePump()
    go c.readPump()
}

func (c *Client) subscribed(topic string) bool {
    c.subsMux.RLock()
    defer c.subsMux.RUnlock()
    return c.subscriptions[topic]
}

func (c *Client) readPump() {
    defer func() {
        c.hub.unregister <- c
        c.conn.Close()
    }()

    c.conn.SetReadLimit(maxMessageSize)
    c.conn.SetReadDeadline(time.Now().Add(pongWait))
    c.conn.SetPongHandler(func(string) error {
        c.conn.SetReadDeadline(time.Now().Add(pongWait))
        return nil
    })

    for {
        _, message, err := c.conn.ReadMessage()
        if err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
                log.Printf("WebSocket error: %v", err)
            }
            break
        }

        // Process incoming message
        go c.processMessage(message)
    }
}

func (c *Client) writePump() {
    ticker := time.NewTicker(pingPeriod)
    defer func() {
        ticker.Stop()
        c.conn.Close()
    }()

    for {
        select {
        case message, ok := <-c.send:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if !ok {
                c.conn.WriteMessage(websocket.CloseMessage, []byte{})
                return
            }

            w, err := c.conn.NextWriter(websocket.TextMessage)
            if err != nil {
                return
            }
            w.Write(message)

            // Add queued messages to the current websocket message
            n := len(c.send)
            for i := 0; i < n; i++ {
                w.Write([]byte{'\n'})
                w.Write(<-c.send)
            }

            if err := w.Close(); err != nil {
                return
            }

        case <-ticker.C:
            c.conn.SetWriteDeadline(time.Now().Add(writeWait))
            if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
                return
            }
        }
    }
}

func (c *Client) processMessage(data []byte) {
    var msg WSMessage
    if err := json.Unmarshal(data, &msg); err != nil {
        log.Printf("Error unmarshaling message: %v", err)
        return
    }

    ctx := context.Background()

    switch msg.Type {
    case WSTypeSubscribe:
        c.handleSubscribe(ctx, msg.Topic)

    case WSTypeUnsubscribe:
        c.handleUnsubscribe(msg.Topic)

    case WSTypeSend:
        c.handleSend(ctx, msg.Data)

    case WSTypeDelivered:
        c.handleReceipt(ctx, msg.Data, StatusDelivered)

    case WSTypeSeen:
        c.handleReceipt(ctx, msg.Data, StatusSeen)

    case WSTypeReact:
        c.handleReaction(ctx, msg.Data)

    case WSTypeDeleteForMe:
        c.handleDelete(ctx, msg.Data, false)

    case WSTypeDeleteAll:
        c.handleDelete(ctx, msg.Data, true)

    case WSTypeTypingStart:
        c.handleTyping(ctx, msg.Data, true)

    case WSTypeTypingStop:
        c.handleTyping(ctx, msg.Data, false)

    case WSTypeHeartbeat:
        c.handleHeartbeat(ctx)

    default:
        log.Printf("Unknown message type: %s", msg.Type)
    }
}

func (c *Client) handleSubscribe(ctx context.Context, topic string) {
    switch {
    case topic == TopicConversations:
        summaries, err := c.service.ListConversations(ctx, c.userID, 50, 0)
        if err != nil {
            c.respond(WSTypeConversationsSnapshot, nil, err)
            return
        }
        c.addSubscription(topic)
        c.respond(WSTypeConversationsSnapshot, summaries, nil)

    case topic == TopicRequests:
        pending, err := c.service.PendingRequests(ctx, c.userID)
        if err != nil {
            c.respond(WSTypeRequestsSnapshot, nil, err)
            return
        }
        c.addSubscription(topic)
        c.respond(WSTypeRequestsSnapshot, pending, nil)

    case strings.HasPrefix(topic, topicConversationPrefix):
        conversationID := strings.TrimPrefix(topic, topicConversationPrefix)

        // Only participants may watch a conversation
        messages, err := c.service.ListMessages(ctx, conversationID, c.userID, 50, 0)
        if err != nil {
            c.respond(WSTypeMessagesSnapshot, nil, err)
            return
        }
        c.addSubscription(topic)
        c.respond(WSTypeMessagesSnapshot, messages, nil)

        typists, err := c.service.Typists(ctx, conversationID)
        if err == nil {
            c.respond(WSTypeTypingSnapshot, typists, nil)
        }

    default:
        c.respond(WSTypeSubscribe, nil, errUnknownTopic)
    }
}

func (c *Client) addSubscription(topic string) {
    c.subsMux.Lock()
    c.subscriptions[topic] = true
    c.subsMux.Unlock()
}

func (c *Client) handleUnsubscribe(topic string) {
    c.subsMux.Lock()
    delete(c.subscriptions, topic)
    c.subsMux.Unlock()
}

func (c *Client) handleSend(ctx context.Context, data json.RawMessage) {
    var req SendMessageRequest
    if err := json.Unmarshal(data, &req); err != nil {
        c.respond(WSTypeSend, nil, err)
        return
    }

    message, err := c.service.SendMessage(ctx, c.userID, &req)
    if message != nil {
        // A held first-contact message still echoes to its sender
        c.respond(WSTypeSend, message, nil)
        return
    }
    c.respond(WSTypeSend, nil, err)
}

type receiptPayload struct {
    ConversationID string `json:"conversation_id"`
    MessageID      int64  `json:"message_id"`
}

func (c *Client) handleReceipt(ctx context.Context, data json.RawMessage, status string) {
    var payload receiptPayload
    if err := json.Unmarshal(data, &payload); err != nil {
        return
    }

    var err error
    if status == StatusSeen {
        err = c.service.MarkSeen(ctx, payload.ConversationID, payload.MessageID, c.userID)
    } else {
        err = c.service.MarkDelivered(ctx, payload.ConversationID, payload.MessageID, c.userID)
    }
    if err != nil {
        log.Printf("Receipt failed for user %s: %v", c.userID, err)
    }
}

type reactionPayload struct {
    ConversationID string `json:"conversation_id"`
    MessageID      int64  `json:"message_id"`
    Emoji          string `json:"emoji"`
}

func (c *Client) handleReaction(ctx context.Context, data json.RawMessage) {
    var payload reactionPayload
    if err := json.Unmarshal(data, &payload); err != nil {
        c.respond(WSTypeReact, nil, err)
        return
    }

    action, err := c.service.React(ctx, payload.ConversationID, payload.MessageID, c.userID, payload.Emoji)
    if err != nil {
        c.respond(WSTypeReact, nil, err)
        return
    }
    c.respond(WSTypeReact, map[string]interface{}{
        "message_id": payload.MessageID,
        "action":     action,
    }, nil)
}

func (c *Client) handleDelete(ctx context.Context, data json.RawMessage, forEveryone bool) {
    var payload receiptPayload
    if err := json.Unmarshal(data, &payload); err != nil {
        return
    }

    var err error
    if forEveryone {
        err = c.service.DeleteForEveryone(ctx, payload.ConversationID, payload.MessageID, c.userID)
    } else {
        err = c.service.DeleteForMe(ctx, payload.ConversationID, payload.MessageID, c.userID)
    }
    if err != nil {
        c.respond(WSTypeDeleteForMe, nil, err)
    }
}

type typingPayload struct {
    ConversationID string `json:"conversation_id"`
}

func (c *Client) handleTyping(ctx context.Context, data json.RawMessage, start bool) {
    var payload typingPayload
    if err := json.Unmarshal(data, &payload); err != nil {
        return
    }

    var err error
    if start {
        err = c.service.StartTyping(ctx, payload.ConversationID, c.userID)
    } else {
        err = c.service.StopTyping(ctx, payload.ConversationID, c.userID)
    }
    if err != nil {
        log.Printf("Typing update failed for user %s: %v", c.userID, err)
    }
}

func (c *Client) handleHeartbeat(ctx context.Context) {
    if c.hub.presence == nil {
        return
    }
    if err := c.hub.presence.Heartbeat(ctx, c.userID); err != nil {
        log.Printf("Heartbeat failed for user %s: %v", c.userID, err)
    }
}

func (c *Client) respond(msgType string, data interface{}, err error) {
    response := CreateWSResponse(msgType, data, err)
    payload, marshalErr := json.Marshal(response)
    if marshalErr != nil {
        return
    }
    c.enqueue(payload)
}

// enqueue hands a frame to the write pump without blocking. Frames for
// a closed client are discarded, frames for a stalled one are dropped.
func (c *Client) enqueue(payload []byte) {
    c.subsMux.RLock()
    defer c.subsMux.RUnlock()

    if c.closed {
        return
    }
    select {
    case c.send <- payload:
    default:
        wsEventsDroppedTotal.Inc()
    }
}

func (c *Client) close() {
    c.closeOnce.Do(func() {
        c.subsMux.Lock()
        c.closed = true
        close(c.send)
        c.subsMux.Unlock()
    })
}
