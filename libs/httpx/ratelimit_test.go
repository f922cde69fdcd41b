package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4", now) {
			t.Fatalf("request %d: expected allow", i+1)
		}
	}
	if rl.Allow("1.2.3.4", now) {
		t.Fatalf("fourth request inside window should be refused")
	}
	if !rl.Allow("5.6.7.8", now) {
		t.Fatalf("other client should have its own window")
	}
	if !rl.Allow("1.2.3.4", now.Add(61*time.Second)) {
		t.Fatalf("window expiry should reset the count")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	req.RemoteAddr = "10.0.0.9:4411"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
}

func TestClientKey_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4411"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientKey(req); got != "203.0.113.7" {
		t.Fatalf("clientKey = %q, want first forwarded hop", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientKey(req); got != "10.0.0.9" {
		t.Fatalf("clientKey = %q, want host without port", got)
	}
}
