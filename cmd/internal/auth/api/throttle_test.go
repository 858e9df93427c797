package authapi

import (
	"testing"
	"time"
)

func TestThrottle_SlidingWindow(t *testing.T) {
	th := NewThrottle(3, time.Minute)
	t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if blocked, _ := th.Blocked("ip:1.2.3.4", t0); blocked {
			t.Fatalf("blocked after %d failures", i)
		}
		th.Fail("ip:1.2.3.4", t0.Add(time.Duration(i)*time.Second))
	}

	blocked, retry := th.Blocked("ip:1.2.3.4", t0.Add(3*time.Second))
	if !blocked {
		t.Fatalf("expected block after limit")
	}
	if retry != 57*time.Second {
		t.Fatalf("retry=%v want 57s", retry)
	}

	if blocked, _ := th.Blocked("ip:5.6.7.8", t0); blocked {
		t.Fatalf("keys must be independent")
	}

	// The oldest failure ages out of the window.
	if blocked, _ := th.Blocked("ip:1.2.3.4", t0.Add(time.Minute+time.Second)); blocked {
		t.Fatalf("expected window to slide")
	}
}

func TestThrottle_ResetAndDisabled(t *testing.T) {
	th := NewThrottle(1, time.Minute)
	now := time.Now()

	th.Fail("id:a@example.com", now)
	if blocked, _ := th.Blocked("id:a@example.com", now); !blocked {
		t.Fatalf("expected block")
	}
	th.Reset("id:a@example.com")
	if blocked, _ := th.Blocked("id:a@example.com", now); blocked {
		t.Fatalf("expected reset to clear key")
	}

	off := NewThrottle(0, time.Minute)
	off.Fail("k", now)
	if blocked, _ := off.Blocked("k", now); blocked {
		t.Fatalf("disabled throttle must never block")
	}

	var nilThrottle *Throttle
	if blocked, _ := nilThrottle.Blocked("k", now); blocked {
		t.Fatalf("nil throttle must never block")
	}
}
