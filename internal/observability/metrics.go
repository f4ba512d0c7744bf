// Package observability exposes Prometheus metrics for Buzz API calls.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzsample",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Buzz API requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	apiDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "buzzsample",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "Latency of Buzz API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(apiRequests, apiDuration)
}

// RecordAPICall counts one API call and observes its latency.
func RecordAPICall(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	apiRequests.WithLabelValues(operation, outcome).Inc()
	apiDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// APICallCount returns the current counter value for operation/outcome.
func APICallCount(operation, outcome string) prometheus.Counter {
	return apiRequests.WithLabelValues(operation, outcome)
}

// Push sends the API metrics to a Prometheus Pushgateway. An empty url is a no-op.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Collector(apiRequests).Collector(apiDuration).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
