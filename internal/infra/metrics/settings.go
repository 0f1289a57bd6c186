package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(settingsUpdatesTotal, settingsPersistTotal, settingsEventsTotal)
}

var (
	settingsUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_updates_total",
			Help: "User settings changes by action and result (ok/invalid).",
		},
		[]string{"action", "result"},
	)

	settingsPersistTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_persist_total",
			Help: "Asynchronous settings writes by result (ok/error/dropped).",
		},
		[]string{"result"},
	)

	settingsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_events_published_total",
			Help: "settings.changed events by result.",
		},
		[]string{"result"},
	)
)

func IncSettingsUpdate(action, result string) {
	settingsUpdatesTotal.WithLabelValues(norm(action), norm(result)).Inc()
}

func IncSettingsPersist(result string) {
	settingsPersistTotal.WithLabelValues(norm(result)).Inc()
}

func IncSettingsEvent(result string) {
	settingsEventsTotal.WithLabelValues(norm(result)).Inc()
}
