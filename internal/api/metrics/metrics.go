// Package metrics defines and registers all custom Prometheus metrics for
// rolegate. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry at package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rolegate"

// ── Identity metrics ──────────────────────────────────────────────────────────

// RegistrationsTotal counts successful registrations.
// Labels:
//   - service: "portal" or "licensing"
//   - role: the registered role (e.g. "STUDENT", "MANAGER")
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of identities registered, by service and role.",
	},
	[]string{"service", "role"},
)

// LoginAttemptsTotal counts login attempts.
// Labels:
//   - service: "portal" or "licensing"
//   - result: "success", "invalid_credentials", "not_approved", "inactive", "throttled" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by service and result.",
	},
	[]string{"service", "result"},
)

// ApprovalsTotal counts approval requests that reached a decision.
// Label:
//   - outcome: "approved", "not_pending" or "denied"
var ApprovalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approvals_total",
		Help:      "Total number of approval requests, by outcome.",
	},
	[]string{"outcome"},
)

// ── Access gate metrics ───────────────────────────────────────────────────────

// AccessDecisionsTotal counts access gate decisions.
// Labels:
//   - operation: the gated operation (e.g. "licensing.licenses.delete")
//   - decision: "allow", "deny", "unauthenticated" or "error"
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of access gate decisions, by operation and decision.",
	},
	[]string{"operation", "decision"},
)

// ── License metrics ───────────────────────────────────────────────────────────

// LicenseMutationsTotal counts successful license writes.
// Label:
//   - action: "create", "update", "status" or "delete"
var LicenseMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "license_mutations_total",
		Help:      "Total number of license mutations, by action.",
	},
	[]string{"action"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events persisted by the dispatcher.
// Labels:
//   - service: "portal" or "licensing"
//   - action: the audited action (e.g. "approve")
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events persisted.",
	},
	[]string{"service", "action"},
)

// AuditDroppedTotal counts audit events that were not persisted.
// Label:
//   - reason: "queue_full", "closed" or "persist_failed"
var AuditDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped, by reason.",
	},
	[]string{"reason"},
)

// AuditQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditPersistDuration measures how long persisting a single audit event takes.
var AuditPersistDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audit_persist_duration_seconds",
		Help:      "Duration of audit event persistence.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)
