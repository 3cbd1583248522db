package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	router := NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("Content-Type = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	router := NewRouter()
	router.HandleFunc("/api/stream/{id}", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	}).Methods(http.MethodGet, http.MethodOptions)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stream/abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Fatalf("missing CORS allow headers")
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); got == "" {
		t.Fatalf("missing CORS expose headers")
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("preflight response must have no body")
	}
}
