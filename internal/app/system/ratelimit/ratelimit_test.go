package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request over the limit should be rejected")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("different key should have its own window")
	}
}

func TestAllowWindowExpiry(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	if !l.Allow("k") {
		t.Fatal("first request should pass")
	}
	if l.Allow("k") {
		t.Fatal("second request should be limited")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("request after window expiry should pass")
	}
}

func TestAllowPrunesExpiredWindows(t *testing.T) {
	l := New(1, 10*time.Millisecond)

	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	time.Sleep(25 * time.Millisecond)

	// The next call past the sweep horizon drops the stale entries.
	l.Allow("d")

	l.mu.Lock()
	n := len(l.windows)
	l.mu.Unlock()
	if n != 1 {
		t.Errorf("expected only the fresh window to remain, got %d entries", n)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := ClientIP(r); got != "10.0.0.1" {
		t.Errorf("ClientIP = %q, want 10.0.0.1", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("ClientIP with XFF = %q, want 203.0.113.7", got)
	}
}
