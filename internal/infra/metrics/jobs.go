package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(workerJobsProcessedTotal) }

var workerJobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "worker_jobs_processed_total",
		Help: "Total number of background jobs processed, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed', 'rejected'
)

func IncWorkerJob(status string) {
	workerJobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}
