package reconciler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teamarr/teamarr/internal/httpclient"
)

func TestHTTPManager_createChannel(t *testing.T) {
	var loginCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/login":
			atomic.AddInt32(&loginCalls, 1)
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 3600})
		case r.URL.Path == "/api/channels" && r.Method == http.MethodPost:
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "ch-123"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	mgr := NewHTTPManager(srv.URL, "user", "pass", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	id, err := mgr.CreateChannel(context.Background(), ChannelSpec{Name: "Giants vs Patriots"})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if id != "ch-123" {
		t.Errorf("id = %q", id)
	}
}

func TestHTTPManager_reusesTokenAcrossCalls(t *testing.T) {
	var loginCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			atomic.AddInt32(&loginCalls, 1)
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 3600})
		case "/api/channels":
			json.NewEncoder(w).Encode([]RemoteChannel{})
		}
	}))
	defer srv.Close()

	mgr := NewHTTPManager(srv.URL, "user", "pass", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	if _, err := mgr.ListChannels(context.Background()); err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if _, err := mgr.ListChannels(context.Background()); err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if got := atomic.LoadInt32(&loginCalls); got != 1 {
		t.Errorf("loginCalls = %d, want 1 (token reused)", got)
	}
}

func TestHTTPManager_refreshesExpiredToken(t *testing.T) {
	var loginCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			atomic.AddInt32(&loginCalls, 1)
			json.NewEncoder(w).Encode(loginResponse{Token: "tok", ExpiresIn: 0}) // expires immediately-ish (defaults to 1h, override below)
		case "/api/channels":
			json.NewEncoder(w).Encode([]RemoteChannel{})
		}
	}))
	defer srv.Close()

	mgr := NewHTTPManager(srv.URL, "user", "pass", httpclient.NewClient(100, time.Minute, httpclient.DefaultRetryPolicy))
	if _, err := mgr.ListChannels(context.Background()); err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	mgr.tokenExp = time.Now().Add(-time.Minute) // force expiry
	if _, err := mgr.ListChannels(context.Background()); err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if got := atomic.LoadInt32(&loginCalls); got != 2 {
		t.Errorf("loginCalls = %d, want 2 (token refreshed)", got)
	}
}
