// Package metrics defines and registers all custom Prometheus metrics for the
// user service. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// Outcome label values shared by the auth counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ── Auth workflow ─────────────────────────────────────────────────────────────

// AuthOperationsTotal counts auth workflow calls.
// Labels:
//   - operation: register, verify_email, login, refresh, logout, change_password
//   - outcome: "success" or "failure"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of auth workflow operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// RefreshRejectedTotal counts refresh attempts refused because the presented
// token was no longer the stored one (reuse of a rotated-out token or a lost race).
var RefreshRejectedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rejected_total",
		Help:      "Total number of refresh attempts with a stale refresh token.",
	},
)

// ── Verification email ────────────────────────────────────────────────────────

// VerificationEmailsTotal counts verification email outcomes.
// Label:
//   - result: "sent", "failed", "queued" or "dropped" (queue full)
var VerificationEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_emails_total",
		Help:      "Total number of verification emails, labelled by result.",
	},
	[]string{"result"},
)

// VerificationQueueDepth tracks the number of jobs waiting in each mail worker channel.
var VerificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "verification_queue_depth",
		Help:      "Current number of verification emails pending in each worker channel.",
	},
	[]string{"worker_id"},
)

// ── Media ─────────────────────────────────────────────────────────────────────

// AvatarOperationsTotal counts media host calls.
// Labels:
//   - operation: "upload" or "delete"
//   - outcome: "success" or "failure"
var AvatarOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "avatar_operations_total",
		Help:      "Total number of avatar uploads and deletions on the media host.",
	},
	[]string{"operation", "outcome"},
)

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
