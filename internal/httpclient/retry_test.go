package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoWithRetry_successFirstTry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	stats := &Stats{}
	resp, err := DoWithRetry(context.Background(), Default(), req, DefaultRetryPolicy, stats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := stats.Snapshot().Requests; got != 1 {
		t.Errorf("Requests = %d, want 1", got)
	}
}

func TestDoWithRetry_retries5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	policy := RetryPolicy{MaxRetries: 3, Retry5xx: true, Backoff5xx: 1 * time.Millisecond}
	stats := &Stats{}
	resp, err := DoWithRetry(context.Background(), Default(), req, policy, stats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := stats.Snapshot().Retries; got != 2 {
		t.Errorf("Retries = %d, want 2", got)
	}
}

func TestDoWithRetry_exhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	policy := RetryPolicy{MaxRetries: 2, Retry5xx: true, Backoff5xx: 1 * time.Millisecond}
	resp, err := DoWithRetry(context.Background(), Default(), req, policy, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestDoWithRetry_429WaitsForRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	policy := RetryPolicy{MaxRetries: 2, Retry429: true, Max429Wait: time.Second}
	stats := &Stats{}
	resp, err := DoWithRetry(context.Background(), Default(), req, policy, stats)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := stats.Snapshot().ReactiveWaits; got != 1 {
		t.Errorf("ReactiveWaits = %d, want 1", got)
	}
}

func TestDoWithRetry_404NeverRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(context.Background(), Default(), req, DefaultRetryPolicy, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (404 never retried)", calls)
	}
}

func TestParseRetryAfter_seconds(t *testing.T) {
	got := parseRetryAfter("5", time.Minute)
	if got != 5*time.Second {
		t.Errorf("parseRetryAfter(5) = %v, want 5s", got)
	}
}

func TestParseRetryAfter_capsAtMax(t *testing.T) {
	got := parseRetryAfter("600", 10*time.Second)
	if got != 10*time.Second {
		t.Errorf("parseRetryAfter capped = %v, want 10s", got)
	}
}

func TestParseRetryAfter_empty(t *testing.T) {
	got := parseRetryAfter("", time.Minute)
	if got != time.Second {
		t.Errorf("parseRetryAfter empty = %v, want 1s", got)
	}
}

func TestClient_rateLimiterCountsPreemptiveWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(2, 200*time.Millisecond, RetryPolicy{MaxRetries: 1})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		resp, err := c.Get(ctx, srv.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}
	if got := c.Stats.Snapshot().PreemptiveWaits; got < 1 {
		t.Errorf("PreemptiveWaits = %d, want >= 1 (3rd request should saturate a 2/window limiter)", got)
	}
}
