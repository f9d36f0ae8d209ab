package govmap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nadlan",
		Subsystem: "govmap",
		Name:      "requests_total",
		Help:      "Registry requests by endpoint and outcome.",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nadlan",
		Subsystem: "govmap",
		Name:      "request_duration_seconds",
		Help:      "Registry request latency by endpoint.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nadlan",
		Subsystem: "govmap",
		Name:      "retries_total",
		Help:      "Registry request retries by endpoint.",
	}, []string{"endpoint"})
)
