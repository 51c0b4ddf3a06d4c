package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_nodes_total",
			Help: "Total number of configured nodes",
		},
	)

	NodeLoad = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_node_load",
			Help: "Current number of live workers on a node",
		},
		[]string{"node"},
	)

	NodeCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_node_capacity",
			Help: "Configured worker capacity of a node",
		},
		[]string{"node"},
	)

	NodeBlacklisted = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dispatch_node_blacklisted",
			Help: "Whether a node is globally black-listed (1 = blacklisted)",
		},
		[]string{"node"},
	)

	WaitlistDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_waitlist_depth",
			Help: "Number of tasks currently waiting to be dispatched",
		},
	)

	LiveWorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_live_workers_total",
			Help: "Total number of currently live workers across all nodes",
		},
	)

	// Scheduling outcome metrics
	DispatchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_attempts_total",
			Help: "Total number of scheduling attempts by outcome",
		},
		[]string{"outcome"}, // dispatched | busy | all_bad_terminal | all_bad_retryable
	)

	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_scheduling_latency_seconds",
			Help:    "Time a task spends in the waitlist before dispatch",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_worker_outcomes_total",
			Help: "Total number of worker terminations by result kind",
		},
		[]string{"node", "result"}, // ok | data_err | crash
	)

	TasksSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
	)

	JobsKilledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_jobs_killed_total",
			Help: "Total number of kill_job operations processed",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_api_requests_total",
			Help: "Total number of admin API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_api_request_duration_seconds",
			Help:    "Admin API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(NodeLoad)
	prometheus.MustRegister(NodeCapacity)
	prometheus.MustRegister(NodeBlacklisted)
	prometheus.MustRegister(WaitlistDepth)
	prometheus.MustRegister(LiveWorkersTotal)
	prometheus.MustRegister(DispatchAttemptsTotal)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(WorkerOutcomesTotal)
	prometheus.MustRegister(TasksSubmittedTotal)
	prometheus.MustRegister(JobsKilledTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
