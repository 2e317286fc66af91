// Package metrics defines the custom Prometheus metrics for the session
// core. It is the single source of truth for metric names, labels, and help
// strings; promauto registers everything with the default registry at
// package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session"

// LoginsTotal counts login attempts by outcome.
// Labels:
//   - result: "success", "invalid_credentials", "unreachable", "storage_error", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RecoveriesTotal counts startup session recoveries by outcome.
// Labels:
//   - result: "restored" (token valid, profile refreshed), "empty" (no stored
//     token), "rejected" (stored token no longer accepted)
var RecoveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recoveries_total",
		Help:      "Total number of startup session recoveries, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts user-initiated logouts.
// Labels:
//   - mode: "partial" (remember-me kept) or "full" (credentials forgotten)
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of user-initiated logouts, by mode.",
	},
	[]string{"mode"},
)

// ForcedLogoutsTotal counts sessions torn down because a stored token was
// rejected during recovery.
var ForcedLogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forced_logouts_total",
		Help:      "Total number of sessions torn down over a stale token.",
	},
)
