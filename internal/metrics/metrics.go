// Package metrics provides Prometheus metrics for the answer pipeline.
// It tracks request counts, stage latencies, cache effectiveness, and
// memory promotion activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "anscache"

var (
	// RequestsTotal counts answered requests by route and cache status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total answer requests by route and cache status",
		},
		[]string{"route", "cache_status"},
	)

	// RequestErrors counts aborted requests by error category.
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Total aborted requests by error category",
		},
		[]string{"category"}, // config, service, store, other
	)

	// RequestLatency tracks end-to-end answer latency.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "End-to-end answer latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"cache_status"},
	)

	// CacheLookups counts semantic cache lookups by outcome.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Semantic cache lookups by route and outcome",
		},
		[]string{"route", "outcome"}, // hit, miss
	)

	// CacheStores counts semantic cache stores by disposition.
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stores_total",
			Help:      "Semantic cache stores by route and disposition",
		},
		[]string{"route", "disposition"}, // inserted, merged
	)

	// RouterDecisions counts routing outcomes.
	RouterDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_decisions_total",
			Help:      "Semantic router decisions by resolved route",
		},
		[]string{"route"},
	)

	// PromotedFacts counts facts promoted into long-term memory.
	PromotedFacts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promoted_facts_total",
			Help:      "Facts promoted from short-term to long-term memory",
		},
	)

	// GenerationCalls counts generation service calls by tier and status.
	GenerationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Generation service calls by tier and status",
		},
		[]string{"tier", "status"}, // ok, error
	)
)
