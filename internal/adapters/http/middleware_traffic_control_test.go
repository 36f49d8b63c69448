package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func TestRateLimitMiddlewareRejectsBurstOverflow(t *testing.T) {
	handler := rateLimitMiddleware(okHandler(), 1, 1)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/reply", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected the first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/reply", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket is drained, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After header on 429")
	}
}

func TestRateLimitMiddlewareDisabledWhenZero(t *testing.T) {
	handler := rateLimitMiddleware(okHandler(), 0, 0)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reply", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected rps=0 to disable the limiter, got %d on request %d", rec.Code, i)
		}
	}
}

func TestBackpressureMiddlewareShedsWhenSaturated(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})
	handler := backpressureMiddleware(slow, 1, 20*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reply", nil))
	}()
	<-started

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/reply", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the only slot is held, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected a JSON error body, got content type %q", ct)
	}

	close(release)
	wg.Wait()
}

func TestBackpressureMiddlewareAdmitsFreedSlot(t *testing.T) {
	handler := backpressureMiddleware(okHandler(), 1, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("sequential requests must reuse the slot, got %d on request %d", rec.Code, i)
		}
	}
}

func TestRequestIDMiddlewarePropagatesInboundID(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-fixed-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-fixed-1" {
		t.Fatalf("expected the inbound request id to flow through, got %q", seen)
	}
	if rec.Header().Get(requestIDHeader) != "req-fixed-1" {
		t.Fatalf("expected the request id echoed on the response")
	}
}
