package thesportsdb

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
		w.Write([]byte(`{"events":[{"idEvent":"1","idHomeTeam":"10","idAwayTeam":"11","strHomeTeam":"Giants","strAwayTeam":"Patriots","dateEvent":"2025-12-02","strTime":"01:15:00","strStatus":"NS"}]}`))
	}))
	defer srv.Close()

	a := New(srv.URL, "test", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	events, err := a.GetEvents(context.Background(), "nfl", time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.Home.Name != "Giants" || ev.Away.Name != "Patriots" {
		t.Errorf("teams: home=%q away=%q", ev.Home.Name, ev.Away.Name)
	}
	if !ev.Start.Equal(time.Date(2025, 12, 2, 1, 15, 0, 0, time.UTC)) {
		t.Errorf("start = %v", ev.Start)
	}
	if ev.Status != "scheduled" {
		t.Errorf("status = %v, want scheduled", ev.Status)
	}
}

func TestGetEvents_unsupportedLeagueReturnsNil(t *testing.T) {
	a := New("http://unused", "k", nil)
	events, err := a.GetEvents(context.Background(), "xfl", time.Now())
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if events != nil {
		t.Errorf("expected nil for unsupported league, got %v", events)
	}
}

func TestGetTeam_notFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := New(srv.URL, "test", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	team, err := a.GetTeam(context.Background(), "999", "nfl")
	if err != nil {
		t.Fatalf("GetTeam: %v", err)
	}
	if team != nil {
		t.Errorf("expected nil team for 404, got %+v", team)
	}
}

func TestSupportsLeague(t *testing.T) {
	a := New("http://unused", "k", nil)
	if !a.SupportsLeague("NFL") {
		t.Error("SupportsLeague should be case-insensitive")
	}
	if a.SupportsLeague("xfl") {
		t.Error("xfl should be unsupported")
	}
}
