// Package metrics defines the Prometheus collectors for pipeline runs and
// the HTTP API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leads"

// Registry holds every collector; it is separate from the global default
// registry so tests can inspect a clean instance.
var Registry = prometheus.NewRegistry()

var (
	// RecordsMerged counts records emitted by the merger.
	RecordsMerged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_merged_total",
		Help:      "Company records emitted by the merge step.",
	})

	// RecordsScored counts scored records.
	RecordsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_scored_total",
		Help:      "Company records scored.",
	})

	// RecordsQualified counts records at or above the threshold.
	RecordsQualified = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_qualified_total",
		Help:      "Company records at or above the lead score threshold.",
	})

	// LikelihoodScore observes final scores.
	LikelihoodScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "likelihood_score",
		Help:      "Distribution of likelihood scores.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})

	// APICalls counts external API calls by service, operation and outcome.
	APICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_calls_total",
		Help:      "External API calls.",
	}, []string{"service", "operation", "outcome"})

	// Verifications counts email verification results by status.
	Verifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_verifications_total",
		Help:      "Email verification results.",
	}, []string{"status"})

	// StepDuration observes pipeline step latency.
	StepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Pipeline step duration.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"step"})

	// HTTPRequests counts API server requests.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP API requests.",
	}, []string{"route", "code"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RecordsMerged,
		RecordsScored,
		RecordsQualified,
		LikelihoodScore,
		APICalls,
		Verifications,
		StepDuration,
		HTTPRequests,
	)
}

// ObserveAPICall records the outcome of one external call.
func ObserveAPICall(service, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	APICalls.WithLabelValues(service, operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
