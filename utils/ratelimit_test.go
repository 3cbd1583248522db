package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(60, 5)
	for i := 0; i < 5; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("request beyond burst was allowed")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(60, 1)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("first client rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("second client must have its own bucket")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	l := NewRateLimiter(60, 1)
	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stream/abc", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
}
