package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramCallbacksTotal,
		telegramRateLimitTriggeredTotal,
		telegramInterceptedTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_callbacks_total",
			Help: "Settings callback presses by action.",
		},
		[]string{"action"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramInterceptedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_messages_intercepted_total",
			Help: "Messages consumed by a conversation subscription instead of routing.",
		},
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncTelegramCallback(action string) {
	telegramCallbacksTotal.WithLabelValues(norm(action)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncIntercepted() {
	telegramInterceptedTotal.Inc()
}
