// internal/messaging/hub.go

package messaging

import (
    "context"
    "encoding/json"
    "log"
    "sync"
    "time"

    "github.com/Aniketpatil2415/whisper-sync-global/internal/events"
)

// PresenceTracker mirrors connection lifecycle into the presence
// store. Implemented by the presence service.
type PresenceTracker interface {
    SetOnline(ctx context.Context, userID string) error
    SetOffline(ctx context.Context, userID string) error
    Heartbeat(ctx context.Context, userID string) error
}

// Hub maintains active websocket connections and fans events from the
// bus out to subscribed clients
type Hub struct {
    // Registered clients, one connection per user
    clients    map[string]*Client
    clientsMux sync.RWMutex

    // Register/unregister clients
    register   chan *Client
    unregister chan *Client

    // Services
    service  Service
    presence PresenceTracker
    bus      events.Bus

    // Heartbeat cadence announced to clients on connect
    heartbeatInterval time.Duration

    // Context for graceful shutdown
    ctx    context.Context
    cancel context.CancelFunc

    // WaitGroup for pending operations
    wg sync.WaitGroup
}

func NewHub(service Service, presenceTracker PresenceTracker, bus events.Bus, heartbeatInterval time.Duration) *Hub {
    ctx, cancel := context.WithCancel(context.Background())

    return &Hub{
        clients:           make(map[string]*Client),
        register:          make(chan *Client),
        unregister:        make(chan *Client),
        service:           service,
        presence:          presenceTracker,
        bus:               bus,
        heartbeatInterval: heartbeatInterval,
        ctx:               ctx,
        cancel:            cancel,
    }
}

func (h *Hub) Run() {
    defer func() {
        h.cleanup()
    }()

    // Each instance carries its own subscription so a cluster of
    // hubs all see every event.
    eventCh, cancelSub, err := h.bus.Subscribe(h.ctx)
    if err != nil {
        log.Printf("Failed to subscribe to event bus: %v", err)
        return
    }
    defer cancelSub()

    for {
        select {
        case client := <-h.register:
            h.registerClient(client)

        case client := <-h.unregister:
            h.unregisterClient(client)

        case event, ok := <-eventCh:
            if !ok {
                return
            }
            h.deliverEvent(event)

        case <-h.ctx.Done():
            return
        }
    }
}

func (h *Hub) registerClient(client *Client) {
    h.clientsMux.Lock()

    // Remove old connection for the same user
    if oldClient, exists := h.clients[client.userID]; exists {
        oldClient.close()
    }

    h.clients[client.userID] = client
    total := len(h.clients)
    h.clientsMux.Unlock()

    wsConnectionsActive.Set(float64(total))

    h.sendFrame(client, WSMessage{
        Type: WSTypeHello,
        Data: mustMarshalJSON(map[string]interface{}{
            "heartbeat_interval": h.heartbeatInterval.String(),
        }),
        Timestamp: time.Now(),
    })

    // Mark user online
    h.wg.Add(1)
    go func() {
        defer h.wg.Done()
        if err := h.presence.SetOnline(h.ctx, client.userID); err != nil {
            log.Printf("Failed to mark %s online: %v", client.userID, err)
        }
    }()

    log.Printf("User %s connected. Total clients: %d", client.userID, total)
}

func (h *Hub) unregisterClient(client *Client) {
    h.clientsMux.Lock()

    current, exists := h.clients[client.userID]
    if !exists || current != client {
        // A newer connection already replaced this one
        h.clientsMux.Unlock()
        return
    }
    client.close()
    delete(h.clients, client.userID)
    total := len(h.clients)
    h.clientsMux.Unlock()

    wsConnectionsActive.Set(float64(total))

    // Mark user offline
    h.wg.Add(1)
    go func() {
        defer h.wg.Done()
        if err := h.presence.SetOffline(h.ctx, client.userID); err != nil {
            log.Printf("Failed to mark %s offline: %v", client.userID, err)
        }
    }()

    log.Printf("User %s disconnected. Total clients: %d", client.userID, total)
}

// deliverEvent routes one bus event to the clients whose
// subscriptions cover it
func (h *Hub) deliverEvent(event events.Event) {
    frame := WSMessage{
        Type:      event.Type,
        Data:      event.Payload,
        Timestamp: event.Timestamp,
    }

    switch {
    case event.ConversationID != "":
        frame.Topic = conversationTopic(event.ConversationID)
        h.deliverToConversation(event, frame)

    case len(event.UserIDs) > 0:
        for _, userID := range event.UserIDs {
            client := h.client(userID)
            if client == nil {
                continue
            }
            if event.Type == events.TypeRequestNew || event.Type == events.TypeRequestResolved {
                if !client.subscribed(TopicRequests) {
                    continue
                }
                frame.Topic = TopicRequests
            }
            h.sendFrame(client, frame)
        }

    default:
        // Presence and settings events fan out to every connection
        h.clientsMux.RLock()
        targets := make([]*Client, 0, len(h.clients))
        for _, client := range h.clients {
            targets = append(targets, client)
        }
        h.clientsMux.RUnlock()
        for _, client := range targets {
            h.sendFrame(client, frame)
        }
    }
}

func (h *Hub) deliverToConversation(event events.Event, frame WSMessage) {
    participants, err := h.service.Participants(h.ctx, event.ConversationID)
    if err != nil {
        log.Printf("Failed to resolve participants for %s: %v", event.ConversationID, err)
        return
    }

    conversationTopicName := conversationTopic(event.ConversationID)
    for _, userID := range participants {
        client := h.client(userID)
        if client == nil {
            continue
        }

        switch {
        case client.subscribed(conversationTopicName):
            h.sendFrame(client, frame)
        case client.subscribed(TopicConversations) &&
            (event.Type == events.TypeMessageNew || event.Type == events.TypeConversationNew):
            // Directory watchers get new-activity events without a
            // per-conversation subscription
            listFrame := frame
            listFrame.Topic = TopicConversations
            h.sendFrame(client, listFrame)
        }
    }
}

func (h *Hub) client(userID string) *Client {
    h.clientsMux.RLock()
    defer h.clientsMux.RUnlock()
    return h.clients[userID]
}

func (h *Hub) sendFrame(client *Client, frame WSMessage) {
    data, err := json.Marshal(frame)
    if err != nil {
        log.Printf("Error marshalling frame: %v", err)
        return
    }

    // A stalled consumer loses events rather than stalling the hub
    client.enqueue(data)
}

func (h *Hub) IsUserOnline(userID string) bool {
    h.clientsMux.RLock()
    defer h.clientsMux.RUnlock()

    _, exists := h.clients[userID]
    return exists
}

func (h *Hub) GetActiveConnections() int {
    h.clientsMux.RLock()
    defer h.clientsMux.RUnlock()
    return len(h.clients)
}

func (h *Hub) cleanup() {
    // Close all client connections
    h.clientsMux.Lock()
    for _, client := range h.clients {
        client.close()
    }
    h.clients = make(map[string]*Client)
    h.clientsMux.Unlock()

    // Wait for all pending operations
    h.wg.Wait()
}

func (h *Hub) Shutdown() {
    h.cancel()
    h.wg.Wait()
}
