package ids

import (
	"testing"
	"time"
)

func TestNewULID_SortableAndTimestamped(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := NewULID(t0)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	b, err := NewULID(t0.Add(time.Second))
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}

	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected lengths: %d %d", len(a), len(b))
	}
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}

	got, ok := Time(a)
	if !ok {
		t.Fatalf("Time(%q) not ok", a)
	}
	if !got.Equal(t0) {
		t.Fatalf("embedded time=%v want %v", got, t0)
	}
}

func TestTime_Invalid(t *testing.T) {
	if _, ok := Time("not-a-ulid"); ok {
		t.Fatalf("expected invalid ULID to be rejected")
	}
}

func TestRequestID(t *testing.T) {
	if id := RequestID(); len(id) != 26 {
		t.Fatalf("RequestID length=%d want 26", len(id))
	}
}
