package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const opentokNamespace string = "opentok"

var (
	promRequestsTotal   *prometheus.CounterVec
	promRequestDuration *prometheus.HistogramVec
	promTokensIssued    *prometheus.CounterVec
	promSignalsRelayed  *prometheus.CounterVec
)

func init() {
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opentokNamespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "REST calls made to the video platform, by operation and response status.",
		},
		[]string{"op", "status"},
	)

	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: opentokNamespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	promTokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opentokNamespace,
			Subsystem: "token",
			Name:      "issued_total",
		},
		[]string{"role"},
	)

	promSignalsRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opentokNamespace,
			Subsystem: "relay",
			Name:      "signals_total",
		},
		[]string{"source", "status"},
	)

	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promTokensIssued)
	prometheus.MustRegister(promSignalsRelayed)
}

func ObserveRequest(op, status string, elapsed time.Duration) {
	promRequestsTotal.WithLabelValues(op, status).Inc()
	promRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func TokenIssued(role string) {
	promTokensIssued.WithLabelValues(role).Inc()
}

// SignalRelayed counts a relayed signal; status is "ok", "invalid" or "failed"
func SignalRelayed(source, status string) {
	promSignalsRelayed.WithLabelValues(source, status).Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
