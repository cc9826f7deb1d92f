package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(schedulerRunsTotal, broadcastJobsTotal, emailsTotal) }

var (
	schedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Scheduled job runs by job name and result.",
		},
		[]string{"job", "result"}, // result: ok|error|locked
	)

	broadcastJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_jobs_total",
			Help: "Broadcast jobs by terminal status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_total",
			Help: "Outgoing emails by kind and delivery status.",
		},
		[]string{"kind", "status"}, // status: sent|error
	)
)

func IncSchedulerRun(job, result string) {
	schedulerRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}

func IncBroadcastJob(status string) {
	broadcastJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncEmail(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	emailsTotal.WithLabelValues(norm(kind), status).Inc()
}
