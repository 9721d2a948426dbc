package httpclient

import "sync/atomic"

// Stats accumulates the provider_stats() counters named in spec §4.1/§4.2:
// preemptive rate-limiter waits, reactive (429 Retry-After) waits, retried
// requests, and total requests issued. One Stats belongs to one adapter's
// Client; the Data Service aggregates across adapters for provider_stats().
type Stats struct {
	requests       int64
	retries        int64
	preemptiveWait int64
	reactiveWait   int64
}

// Snapshot is a point-in-time, immutable copy of Stats' counters.
type Snapshot struct {
	Requests       int64
	Retries        int64
	PreemptiveWaits int64
	ReactiveWaits   int64
}

func (s *Stats) incRequests() {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.requests, 1)
}

func (s *Stats) incRetries() {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.retries, 1)
}

func (s *Stats) incPreemptiveWait() {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.preemptiveWait, 1)
}

func (s *Stats) incReactiveWaits() {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.reactiveWait, 1)
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Requests:        atomic.LoadInt64(&s.requests),
		Retries:         atomic.LoadInt64(&s.retries),
		PreemptiveWaits: atomic.LoadInt64(&s.preemptiveWait),
		ReactiveWaits:   atomic.LoadInt64(&s.reactiveWait),
	}
}

// Reset zeroes all counters. Called at the start of each generation (§4.2
// reset_provider_stats).
func (s *Stats) Reset() {
	if s == nil {
		return
	}
	atomic.StoreInt64(&s.requests, 0)
	atomic.StoreInt64(&s.retries, 0)
	atomic.StoreInt64(&s.preemptiveWait, 0)
	atomic.StoreInt64(&s.reactiveWait, 0)
}
