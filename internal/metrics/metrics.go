// README: Prometheus collectors for the HTTP surface and the transition engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mandado_http_requests_total",
		Help: "HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mandado_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mandado_order_transitions_total",
		Help: "Committed order transitions by target status and actor role.",
	}, []string{"to_status", "role"})

	TransitionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mandado_order_transition_rejections_total",
		Help: "Rejected transition requests by reason.",
	}, []string{"reason"})
)
