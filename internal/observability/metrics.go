package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	requestsTotal          *prometheus.CounterVec
	latencySeconds         *prometheus.HistogramVec
	errorsTotal            *prometheus.CounterVec
	marksRecordedTotal     *prometheus.CounterVec
	sessionsAutoCompleted  prometheus.Counter
	snapshotRecomputes     prometheus.Counter
	notificationsPublished *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		marksRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_marks_recorded_total",
			Help: "Total number of attendance records written, by marking method.",
		}, []string{"method"})

		sessionsAutoCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_sessions_auto_completed_total",
			Help: "Total number of sessions closed by the expiry sweep.",
		})

		snapshotRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_snapshot_recomputes_total",
			Help: "Total number of analytics snapshot recomputations.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_notifications_published_total",
			Help: "Total number of outbound notification events, by kind.",
		}, []string{"kind"})

		prometheus.MustRegister(
			requestsTotal, latencySeconds, errorsTotal,
			marksRecordedTotal, sessionsAutoCompleted,
			snapshotRecomputes, notificationsPublished,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// MarksRecorded exposes the counter for written attendance records.
func MarksRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return marksRecordedTotal
}

// SessionsAutoCompleted exposes the counter for sweep-closed sessions.
func SessionsAutoCompleted() prometheus.Counter {
	RegisterMetrics()
	return sessionsAutoCompleted
}

// SnapshotRecomputes exposes the counter for analytics recomputations.
func SnapshotRecomputes() prometheus.Counter {
	RegisterMetrics()
	return snapshotRecomputes
}

// NotificationsPublished exposes the counter for outbound events.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}
