// internal/admin/metrics.go

package admin

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var auditActionsTotal = promauto.NewCounterVec(
    prometheus.CounterOpts{
        Name: "admin_audit_actions_total",
        Help: "Total number of administrative actions recorded",
    },
    []string{"action"},
)

func recordAuditAction(action string) {
    auditActionsTotal.WithLabelValues(action).Inc()
}
