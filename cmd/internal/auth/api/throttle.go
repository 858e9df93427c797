package authapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"methodius/cmd/internal/httpjson"
)

// Throttle counts failed logins per key in a sliding window.
type Throttle struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
}

// NewThrottle returns a Throttle blocking a key after limit failures within window.
// A non-positive limit disables it.
func NewThrottle(limit int, window time.Duration) *Throttle {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Throttle{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Blocked reports whether key is over its limit at now, and for how long.
func (t *Throttle) Blocked(key string, now time.Time) (bool, time.Duration) {
	if t == nil || t.limit <= 0 || key == "" {
		return false, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	evs := t.pruneLocked(key, now)
	if len(evs) < t.limit {
		return false, 0
	}
	retry := evs[0].Add(t.window).Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return true, retry
}

// Fail records a failed attempt for key.
func (t *Throttle) Fail(key string, now time.Time) {
	if t == nil || t.limit <= 0 || key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	evs := t.pruneLocked(key, now)
	t.events[key] = append(evs, now)
}

// Reset forgets key after a successful login.
func (t *Throttle) Reset(key string) {
	if t == nil || key == "" {
		return
	}
	t.mu.Lock()
	delete(t.events, key)
	t.mu.Unlock()
}

func (t *Throttle) pruneLocked(key string, now time.Time) []time.Time {
	cut := now.Add(-t.window)
	evs := t.events[key]
	dst := evs[:0]
	for _, ts := range evs {
		if ts.After(cut) {
			dst = append(dst, ts)
		}
	}
	if len(dst) == 0 {
		delete(t.events, key)
		return nil
	}
	t.events[key] = dst
	return dst
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	setRetryAfter(w, retryAfter)
	httpjson.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

func setRetryAfter(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()+0.5), 10))
	}
}
