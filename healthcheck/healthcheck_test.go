package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestHealthURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"", "http://localhost:3000/health"},
		{":8080", "http://localhost:8080/health"},
		{"0.0.0.0:9000", "http://localhost:9000/health"},
		{"127.0.0.1:3001", "http://127.0.0.1:3001/health"},
	}
	for _, tt := range tests {
		got, err := healthURL(tt.addr)
		if err != nil {
			t.Fatalf("healthURL(%q): %v", tt.addr, err)
		}
		if got != tt.want {
			t.Errorf("healthURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}

	if _, err := healthURL("3000"); err == nil {
		t.Error("expected error for address without port separator")
	}
}

func TestRun(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer ts.Close()

	addr := strings.TrimPrefix(ts.URL, "http://")
	if err := run(context.Background(), addr); err != nil {
		t.Fatalf("run: %v", err)
	}

	status.Store(http.StatusServiceUnavailable)
	if err := run(context.Background(), addr); err == nil {
		t.Fatal("expected error for unhealthy server")
	}
}
