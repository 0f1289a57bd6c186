package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminRequestTotal) }

var adminRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_request_total",
		Help: "Tracks admin API and /users command attempts.",
	},
	[]string{"command", "status"}, // status: 'authorized', 'unauthorized'
)

func IncAdminCommand(command, status string) {
	adminRequestTotal.WithLabelValues(norm(command), norm(status)).Inc()
}
