package statfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
)

func TestGetEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","home_id":"h","away_id":"a","home":"Home FC","away":"Away FC","start_time":"2025-12-02T01:15:00Z","status":"scheduled"}]`))
	}))
	defer srv.Close()

	a := New(srv.URL, "key", "ufc", "mma", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	events, err := a.GetEvents(context.Background(), "ufc", time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Home.Name != "Home FC" {
		t.Errorf("home = %q", events[0].Home.Name)
	}
}

func TestGetEvents_wrongLeagueReturnsNil(t *testing.T) {
	a := New("http://unused", "", "ufc", "mma", nil)
	events, err := a.GetEvents(context.Background(), "nfl", time.Now())
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if events != nil {
		t.Errorf("expected nil for unsupported league, got %v", events)
	}
}

func TestGetTeamStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"wins":10,"losses":2,"draws":0,"streak_kind":"win","streak_length":5,"rank":3}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "", "ufc", "mma", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	stats, err := a.GetTeamStats(context.Background(), "t1", "ufc")
	if err != nil {
		t.Fatalf("GetTeamStats: %v", err)
	}
	if stats == nil {
		t.Fatal("expected non-nil stats")
	}
	if stats.StreakLength != 5 || stats.Rank != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSupportsLeague_singleLeagueOnly(t *testing.T) {
	a := New("http://unused", "", "ufc", "mma", nil)
	if !a.SupportsLeague("UFC") {
		t.Error("SupportsLeague should be case-insensitive")
	}
	if a.SupportsLeague("nfl") {
		t.Error("statfeed adapter should be single-league")
	}
}
