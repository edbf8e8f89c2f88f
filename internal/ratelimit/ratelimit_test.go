package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterSlidingWindow(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 5,
		Window:            time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "test-ip"

	// Should allow up to the window limit
	for i := 0; i < 5; i++ {
		if !limiter.allowAt(key, base.Add(time.Duration(i)*time.Second)) {
			t.Errorf("Request %d should be allowed (within window)", i)
		}
	}

	// Next request inside the window should be denied
	if limiter.allowAt(key, base.Add(10*time.Second)) {
		t.Error("Request over the window limit should be denied")
	}

	// After the earliest request slides out, one more is allowed
	if !limiter.allowAt(key, base.Add(61*time.Second)) {
		t.Error("Request after window slides should be allowed")
	}
}

func TestLimiterMinInterval(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 100,
		MinInterval:       time.Second,
		Window:            time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "sender:0xa1"

	if !limiter.allowAt(key, base) {
		t.Error("First request should be allowed")
	}

	// Too soon after the previous request
	if limiter.allowAt(key, base.Add(200*time.Millisecond)) {
		t.Error("Request inside min interval should be denied")
	}

	if !limiter.allowAt(key, base.Add(time.Second)) {
		t.Error("Request after min interval should be allowed")
	}
}

func TestLimiterMultipleClients(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 3,
		Window:            time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Client A uses up their allowance
	for i := 0; i < 3; i++ {
		limiter.allowAt("client-a", base)
	}

	// Client A is now rate limited
	if limiter.allowAt("client-a", base) {
		t.Error("Client A should be rate limited")
	}

	// Client B is unaffected
	if !limiter.allowAt("client-b", base) {
		t.Error("Client B should still be allowed")
	}
}

func TestLimiterDeniedRequestDoesNotCount(t *testing.T) {
	cfg := Config{
		RequestsPerMinute: 100,
		MinInterval:       time.Second,
		Window:            time.Minute,
	}
	limiter := New(cfg)
	defer limiter.Stop()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := "sender:0xa1"

	limiter.allowAt(key, base)
	limiter.allowAt(key, base.Add(100*time.Millisecond)) // denied

	// The denied request must not reset the interval clock
	if !limiter.allowAt(key, base.Add(time.Second)) {
		t.Error("Interval should be measured from the last allowed request")
	}
}
