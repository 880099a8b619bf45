package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var InFlightRequests = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "http_in_flight_requests",
	Help: "Current number of in-flight HTTP requests.",
})

// Database Metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})

// QueryTimer times one repository call. The status label is read when the
// duration is observed, so Fail must be called before ObserveDuration.
type QueryTimer struct {
	queryType  string
	repository string
	status     string
	timer      *prometheus.Timer
}

func NewQueryTimer(queryType, repository string) *QueryTimer {
	t := &QueryTimer{queryType: queryType, repository: repository, status: "success"}
	t.timer = prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		DBQueryDurationSeconds.WithLabelValues(t.queryType, t.repository, t.status).Observe(v)
	}))
	return t
}

func (t *QueryTimer) Fail() {
	t.status = "error"
	DBQueryErrorsTotal.WithLabelValues(t.queryType, t.repository).Inc()
}

func (t *QueryTimer) ObserveDuration() {
	t.timer.ObserveDuration()
}
