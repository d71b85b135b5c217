package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	defer rl.Stop()
	now := time.Now()

	// The burst of 3 is allowed immediately.
	for i := 0; i < 3; i++ {
		if !rl.allow("test-ip", now) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if rl.allow("test-ip", now) {
		t.Error("4th request should be rate-limited")
	}

	if !rl.allow("other-ip", now) {
		t.Error("different IP should be allowed")
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(10, 1)
	defer rl.Stop()
	now := time.Now()

	if !rl.allow("test-ip", now) {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("test-ip", now) {
		t.Error("should be rate-limited")
	}

	// At 10 rps a token is back after 100ms.
	if !rl.allow("test-ip", now.Add(150*time.Millisecond)) {
		t.Error("should be allowed after refill")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	now := time.Now()

	rl.allow("stale", now.Add(-2*idleTTL))
	rl.allow("fresh", now)
	rl.cleanup(now)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["stale"]; ok {
		t.Error("idle entry should be removed")
	}
	if _, ok := rl.clients["fresh"]; !ok {
		t.Error("recent entry should be kept")
	}
}

func TestRateLimiterStopTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/themes/x/like", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/themes/x/like", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("got status %d, want 429", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Too many requests") {
		t.Errorf("body: %q", rr.Body.String())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited < 45 {
		t.Errorf("limited = %d, want rotating X-Forwarded-For to be throttled", limited)
	}
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies("10.0.0.0/8, 127.0.0.1")
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}

	tests := []struct {
		name    string
		trusted bool
		xff     string
		remote  string
		want    string
	}{
		{"remote addr", false, "", "192.0.2.1:4000", "192.0.2.1"},
		{"ipv6 remote addr", false, "", "[2001:db8::1]:4000", "2001:db8::1"},
		{"no port", false, "", "unix", "unix"},
		{"untrusted peer ignores header", false, "1.2.3.4", "192.0.2.1:4000", "192.0.2.1"},
		{"trusted peer single hop", true, "1.2.3.4", "10.0.0.1:4000", "1.2.3.4"},
		{"trusted peer takes rightmost untrusted", true, "6.6.6.6, 1.2.3.4, 10.1.1.1", "10.0.0.1:4000", "1.2.3.4"},
		{"trusted peer without header", true, "", "127.0.0.1:4000", "127.0.0.1"},
		{"all hops trusted", true, "10.2.2.2", "10.0.0.1:4000", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rl *RateLimiter
			if tt.trusted {
				rl = NewRateLimiter(1, 1, trusted...)
			} else {
				rl = NewRateLimiter(1, 1)
			}
			defer rl.Stop()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := rl.clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies(" 10.0.0.1/8 ,::1,")
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	if len(got) != 2 || got[0].String() != "10.0.0.0/8" || got[1].String() != "::1/128" {
		t.Errorf("got %v", got)
	}

	if _, err := ParseTrustedProxies("10.0.0.0/99"); err == nil {
		t.Error("expected error for bad prefix")
	}
	if _, err := ParseTrustedProxies("proxy.local"); err == nil {
		t.Error("expected error for hostname")
	}
}
