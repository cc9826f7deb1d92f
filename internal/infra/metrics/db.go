package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbCommandDuration) }

var dbCommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_command_duration_seconds",
		Help:    "MongoDB command latency by command name and result.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	},
	[]string{"command", "result"}, // result: ok|error
)

func ObserveDBCommand(command string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	dbCommandDuration.WithLabelValues(norm(command), result).Observe(d.Seconds())
}
