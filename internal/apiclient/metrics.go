package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizmaster",
		Name:      "backend_requests_total",
		Help:      "Backend API calls by operation and status code (0 = transport failure).",
	}, []string{"op", "status"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizmaster",
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of backend API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
)

func observe(op string, status int, elapsed time.Duration) {
	backendRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	backendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}
