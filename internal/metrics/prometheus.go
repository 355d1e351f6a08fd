package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	awards      *prometheus.CounterVec
	points      *prometheus.CounterVec
	badges      *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates the collector and registers its metrics with reg
// (prometheus.DefaultRegisterer if nil). namespace defaults to "kindroute".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "kindroute"
	}

	p := &PrometheusCollector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignments",
			Name:      "transitions_total",
			Help:      "Committed assignment transitions by task kind and reached status.",
		}, []string{"task_kind", "status"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignments",
			Name:      "conflicts_total",
			Help:      "Operations rejected with a conflict, by operation.",
		}, []string{"operation"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "awards_total",
			Help:      "Ledger awards by entity kind.",
		}, []string{"entity_kind"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "points_awarded_total",
			Help:      "Absolute points moved by awards, by entity kind and sign.",
		}, []string{"entity_kind", "sign"}),
		badges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "badges_granted_total",
			Help:      "Badges granted by name.",
		}, []string{"badge"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dispatch_total",
			Help:      "Notification delivery attempts by channel and result (delivered, retry, failed).",
		}, []string{"channel", "result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		p.transitions, p.conflicts, p.awards, p.points,
		p.badges, p.dispatches, p.requests, p.latency,
	)
	return p
}

// RecordTransition increments the transition counter.
func (p *PrometheusCollector) RecordTransition(taskKind, status string) {
	p.transitions.WithLabelValues(taskKind, status).Inc()
}

// RecordConflict increments the conflict counter.
func (p *PrometheusCollector) RecordConflict(operation string) {
	p.conflicts.WithLabelValues(operation).Inc()
}

// RecordAward increments the award counter and adds the absolute points.
func (p *PrometheusCollector) RecordAward(entityKind string, points int64) {
	p.awards.WithLabelValues(entityKind).Inc()
	sign := "positive"
	if points < 0 {
		sign = "negative"
		points = -points
	}
	p.points.WithLabelValues(entityKind, sign).Add(float64(points))
}

// RecordBadge increments the badge counter.
func (p *PrometheusCollector) RecordBadge(name string) {
	p.badges.WithLabelValues(name).Inc()
}

// RecordDispatch increments the dispatch counter.
func (p *PrometheusCollector) RecordDispatch(channel, result string) {
	p.dispatches.WithLabelValues(channel, result).Inc()
}

// RecordHTTPRequest counts the request and observes its latency.
func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, seconds float64) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.latency.WithLabelValues(method, route).Observe(seconds)
}
