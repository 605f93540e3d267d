// internal/chatrequest/metrics.go

package chatrequest

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
    Name: "chat_requests_total",
    Help: "Chat request lifecycle events, by outcome",
}, []string{"outcome"})
