package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
	if code := do("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("over burst: status = %d, want 429", code)
	}
	if code := do("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other ip: status = %d, want 200", code)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()

	start := time.Now()
	if !rl.allow("10.0.0.1", start) {
		t.Fatal("first request denied")
	}
	if rl.allow("10.0.0.1", start) {
		t.Fatal("second request allowed past burst")
	}
	rl.allow("10.0.0.2", start.Add(idleBucketTTL))

	rl.sweep(start.Add(idleBucketTTL + time.Second))

	rl.mu.Lock()
	_, idle := rl.buckets["10.0.0.1"]
	_, active := rl.buckets["10.0.0.2"]
	rl.mu.Unlock()
	if idle {
		t.Error("idle bucket was not swept")
	}
	if !active {
		t.Error("active bucket was swept")
	}

	// A swept client starts over with a full bucket.
	if !rl.allow("10.0.0.1", start.Add(idleBucketTTL+time.Second)) {
		t.Error("swept client denied")
	}
}
