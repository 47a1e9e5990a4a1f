// Package metrics exposes Prometheus collectors for the research service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scout",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scout",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	RateLimitDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scout",
		Name:      "ratelimit_denied_total",
		Help:      "Requests rejected by the admission gate.",
	})

	RateLimitFailOpen = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scout",
		Name:      "ratelimit_fail_open_total",
		Help:      "Limit checks that failed open due to counter store errors.",
	})

	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scout",
		Name:      "tool_invocations_total",
		Help:      "Agent tool dispatches by tool name and status.",
	}, []string{"tool", "status"})

	ScrapeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scout",
		Name:      "scrape_outcomes_total",
		Help:      "Per-URL scrape outcomes by source type ('error' on failure).",
	}, []string{"source_type"})

	AgentSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scout",
		Name:      "agent_steps_per_run",
		Help:      "Reasoning steps consumed per research loop run.",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
	})
)
