// Package metrics wires the teacher's prometheus/client_golang dependency
// into the provider_stats and run counters named in spec §4.2 "Observability".
// It is additive instrumentation: internal/sportsdata's in-memory
// provider_stats()/reset_provider_stats() remain the source of truth for the
// orchestrator's own report, this registry is a queryable, scrape-able mirror.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every counter/gauge Teamarr exports.
type Registry struct {
	reg *prometheus.Registry

	ProviderRequests       *prometheus.CounterVec
	ProviderRetries        *prometheus.CounterVec
	ProviderPreemptiveWait *prometheus.CounterVec
	ProviderReactiveWait   *prometheus.CounterVec
	ProviderCacheHits      *prometheus.CounterVec
	ProviderCacheMisses    *prometheus.CounterVec

	RunsTotal        *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	ProgrammesEmitted prometheus.Counter
	StreamsMatched    prometheus.Counter
	StreamsMissed     prometheus.Counter
}

// New builds a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_requests_total",
			Help: "Total HTTP requests issued per provider adapter.",
		}, []string{"provider"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_retries_total",
			Help: "Total retried requests per provider adapter.",
		}, []string{"provider"}),
		ProviderPreemptiveWait: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_preemptive_waits_total",
			Help: "Total times a call blocked on the local rate limiter before being sent.",
		}, []string{"provider"}),
		ProviderReactiveWait: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_reactive_waits_total",
			Help: "Total times a call waited on a 429 Retry-After response.",
		}, []string{"provider"}),
		ProviderCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_cache_hits_total",
			Help: "Data Service cache hits per operation.",
		}, []string{"operation"}),
		ProviderCacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_provider_cache_misses_total",
			Help: "Data Service cache misses per operation.",
		}, []string{"operation"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_runs_total",
			Help: "Total EPG generation runs, by terminal status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamarr_run_duration_seconds",
			Help:    "Wall-clock duration of EPG generation runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ProgrammesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_programmes_emitted_total",
			Help: "Total XMLTV programmes written across all runs.",
		}),
		StreamsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_streams_matched_total",
			Help: "Total input streams successfully matched to an event.",
		}),
		StreamsMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamarr_streams_missed_total",
			Help: "Total input streams that failed to match (NoMatch).",
		}),
	}

	reg.MustRegister(
		r.ProviderRequests, r.ProviderRetries, r.ProviderPreemptiveWait, r.ProviderReactiveWait,
		r.ProviderCacheHits, r.ProviderCacheMisses,
		r.RunsTotal, r.RunDuration, r.ProgrammesEmitted, r.StreamsMatched, r.StreamsMissed,
	)
	return r
}

// Gatherer exposes the underlying prometheus.Gatherer for an optional
// /metrics HTTP handler; the core spec has no HTTP layer, so wiring this to
// a server is left to the embedding process.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
