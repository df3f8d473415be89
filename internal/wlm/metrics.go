package wlm

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "jobs_accepted_total",
			Help:      "Jobs admitted into the data queue",
		},
		[]string{"model"},
	)

	jobsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "jobs_rejected_total",
			Help:      "Jobs rejected at admission (ticket exhausted or queue full)",
		},
		[]string{"model", "reason"},
	)

	jobsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "jobs_expired_total",
			Help:      "Jobs dropped during batch filling due to client timeout",
		},
		[]string{"model"},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "batches_total",
			Help:      "Batches handed to worker loops",
		},
		[]string{"model"},
	)

	batchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "batch_size",
			Help:      "Number of jobs per assembled batch",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
		[]string{"model"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "batchd",
			Subsystem: "wlm",
			Name:      "queue_depth",
			Help:      "Current depth of the shared data queue",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(jobsAccepted, jobsRejected, jobsExpired, batchesTotal, batchSize, queueDepth)
}
