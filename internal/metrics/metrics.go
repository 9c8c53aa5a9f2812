// Package metrics holds the Prometheus metrics for the message service. It
// is the single source of truth for metric names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "warbler"

// MessagesCreatedTotal counts messages persisted through the create path.
var MessagesCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_created_total",
		Help:      "Total number of messages created.",
	},
)

// MessagesDeletedTotal counts messages removed by their owners.
var MessagesDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_deleted_total",
		Help:      "Total number of messages deleted.",
	},
)

// UnauthorizedTotal counts rejected message actions.
// Labels:
//   - action: "create" or "delete"
//   - reason: "unauthenticated" (no session) or "not_owner"
var UnauthorizedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unauthorized_total",
		Help:      "Total number of message actions rejected by the authorization gate.",
	},
	[]string{"action", "reason"},
)
