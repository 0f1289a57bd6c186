package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		conversationsArmedTotal,
		conversationsActive,
		conversationsClosedTotal,
		conversationDurationSeconds,
		countdownRefreshTotal,
	)
}

var (
	conversationsArmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_armed_total",
			Help: "Conversations armed, by acceptance mode.",
		},
		[]string{"mode"},
	)

	conversationsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversations_active",
			Help: "Conversations whose supervising loop is still running.",
		},
	)

	conversationsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_closed_total",
			Help: "Conversations closed, by outcome (matched/timed_out/cancelled/superseded).",
		},
		[]string{"outcome", "mode"},
	)

	conversationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conversation_duration_seconds",
			Help:    "Time from arm to close.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 75},
		},
		[]string{"outcome"},
	)

	countdownRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_countdown_refresh_total",
			Help: "Countdown prompt rewrites, by result.",
		},
		[]string{"result"}, // ok, fetch_error, edit_error
	)
)

func ConversationArmed(mode string) {
	conversationsArmedTotal.WithLabelValues(norm(mode)).Inc()
	conversationsActive.Inc()
}

func ConversationClosed(outcome, mode string, d time.Duration) {
	conversationsActive.Dec()
	conversationsClosedTotal.WithLabelValues(norm(outcome), norm(mode)).Inc()
	conversationDurationSeconds.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncCountdownRefresh(result string) {
	countdownRefreshTotal.WithLabelValues(norm(result)).Inc()
}
