package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: rpm, CleanupInterval: time.Hour, Now: c.now})
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestAllowWithinWindow(t *testing.T) {
	rl, c := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	ok, retry := rl.Allow("1.2.3.4")
	if ok {
		t.Fatalf("fourth request allowed")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry = %v", retry)
	}

	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Fatalf("other client limited")
	}

	c.advance(time.Minute)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Fatalf("request after window rejected")
	}
}

func TestWindowDoesNotSlide(t *testing.T) {
	rl, c := newTestLimiter(t, 2)

	rl.Allow("a")
	c.advance(40 * time.Second)
	rl.Allow("a")
	c.advance(30 * time.Second)

	if ok, _ := rl.Allow("a"); !ok {
		t.Fatalf("window should have reset 60s after the first request")
	}
}

func TestCleanupDropsIdleClients(t *testing.T) {
	rl, c := newTestLimiter(t, 5)
	rl.Allow("old")
	c.advance(11 * time.Minute)
	rl.Allow("new")

	rl.cleanupStaleEntries()

	if got := rl.GetMetrics().ClientCount; got != 1 {
		t.Fatalf("client count = %d, want 1", got)
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	var limited int
	h := rl.Middleware(
		func(*http.Request) string { return "k" },
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))

	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests || limited != 1 {
		t.Fatalf("second status = %d, limited = %d", second.Code, limited)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", second.Header().Get("Retry-After"))
	}
	if rl.GetMetrics().TotalHits != 1 {
		t.Fatalf("hits = %d", rl.GetMetrics().TotalHits)
	}
}

func TestStopIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
}
