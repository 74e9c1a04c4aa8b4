package presence

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, time.Second)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !rl.Allow(now) {
			t.Fatalf("event %d should be allowed", i)
		}
	}
	if rl.Allow(now) {
		t.Fatalf("event beyond limit should be denied")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, time.Second)
	now := time.Now()

	if !rl.Allow(now) || !rl.Allow(now) {
		t.Fatalf("first two events should be allowed")
	}
	if rl.Allow(now.Add(500 * time.Millisecond)) {
		t.Fatalf("event inside window should be denied")
	}
	if !rl.Allow(now.Add(1100 * time.Millisecond)) {
		t.Fatalf("event after window slid should be allowed")
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0, 0)
	if rl.limit != rateLimitEvents || rl.window != rateLimitWindow {
		t.Fatalf("limit=%d window=%v; want defaults", rl.limit, rl.window)
	}
}
