// internal/messaging/metrics.go

package messaging

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    messagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "messages_sent_total",
        Help: "Total number of messages sent, by conversation type",
    }, []string{"conversation_type"})

    wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
        Name: "ws_connections_active",
        Help: "Number of currently connected websocket clients",
    })

    wsEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
        Name: "ws_events_dropped_total",
        Help: "Events dropped because a client send buffer was full",
    })

    statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
        Name: "message_status_transitions_total",
        Help: "Delivery status advances, by target status",
    }, []string{"status"})
)

func recordMessageSent(conversationType string) {
    messagesSentTotal.WithLabelValues(conversationType).Inc()
}
