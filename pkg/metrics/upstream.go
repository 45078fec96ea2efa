package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream records calls made to the DTC REST API.
type Upstream struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

// NewUpstream registers the upstream collectors on reg. A nil registerer
// keeps the collectors unregistered, which is what tests want.
func NewUpstream(reg prometheus.Registerer) *Upstream {
	m := &Upstream{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Upstream DTC API requests by endpoint and outcome.",
		}, []string{"endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dtc_insights",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of upstream DTC API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dtc_insights",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried upstream DTC API requests.",
		}, []string{"endpoint"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.latency, m.retries)
	}
	return m
}

// Observe records one finished attempt. status 0 means a transport error.
func (m *Upstream) Observe(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(endpoint, label).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Retry counts a retried attempt.
func (m *Upstream) Retry(endpoint string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(endpoint).Inc()
}
