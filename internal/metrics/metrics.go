package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forgot_password"

// Reset email outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
	OutcomeInvalid = "invalid"
)

var (
	resetEmailDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_email_dispatch_total",
			Help:      "Reset password email dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	resetEmailDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reset_email_dispatch_duration_seconds",
			Help:      "Reset password email render+dispatch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	resetEventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_events_consumed_total",
			Help:      "Reset events consumed from RabbitMQ by result",
		},
		[]string{"result"}, // handled, failed, bad_json, dropped
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Sign-in and sign-up attempts by action and status",
		},
		[]string{"action", "status"},
	)
)

func RecordResetDispatch(outcome string, took time.Duration) {
	resetEmailDispatchTotal.WithLabelValues(outcome).Inc()
	resetEmailDispatchDuration.Observe(took.Seconds())
}

func RecordResetEventConsumed(result string) {
	resetEventsConsumedTotal.WithLabelValues(result).Inc()
}

func RecordAuthAttempt(action, status string) {
	authAttemptsTotal.WithLabelValues(action, status).Inc()
}
