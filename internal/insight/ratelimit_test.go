package insight

import (
	"errors"
	"testing"
	"time"

	"coinwise/internal/core"
)

func TestRateLimiterAdmitsUpToMax(t *testing.T) {
	l := NewRateLimiter()

	for i := 0; i < MaxGenerations; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("admission %d rejected: %v", i+1, err)
		}
	}

	err := l.CheckAndRecord("u1")
	var limited *core.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("11th admission = %v, want RateLimitedError", err)
	}
	if limited.RetryAfter <= 0 || limited.RetryAfter > RateWindow {
		t.Errorf("retry after = %v, want within (0, %v]", limited.RetryAfter, RateWindow)
	}
}

func TestRateLimiterRejectionConsumesNoSlot(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.SetClock(func() time.Time { return now })

	for i := 0; i < MaxGenerations; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("admission %d rejected: %v", i+1, err)
		}
	}
	for i := 0; i < 5; i++ {
		if err := l.CheckAndRecord("u1"); err == nil {
			t.Fatal("expected rejection")
		}
	}

	// Once the original admissions leave the window the owner is clear
	// again: the rejected attempts must not have occupied slots.
	now = now.Add(RateWindow + time.Second)
	if err := l.CheckAndRecord("u1"); err != nil {
		t.Fatalf("slot did not free after the window: %v", err)
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.SetClock(func() time.Time { return now })

	// Five admissions now, five more 30 minutes later.
	for i := 0; i < 5; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}
	now = now.Add(30 * time.Minute)
	for i := 0; i < 5; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}

	if err := l.CheckAndRecord("u1"); err == nil {
		t.Fatal("expected rejection at the cap")
	}

	// 31 minutes later the first batch has aged out; the second has not.
	now = now.Add(31 * time.Minute)
	for i := 0; i < 5; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("aged-out slots not reclaimed: %v", err)
		}
	}
	if err := l.CheckAndRecord("u1"); err == nil {
		t.Fatal("second batch still counts toward the cap")
	}
}

func TestRateLimiterIsolatesOwners(t *testing.T) {
	l := NewRateLimiter()

	for i := 0; i < MaxGenerations; i++ {
		if err := l.CheckAndRecord("u1"); err != nil {
			t.Fatalf("unexpected rejection: %v", err)
		}
	}
	if err := l.CheckAndRecord("u2"); err != nil {
		t.Fatalf("u2 must not share u1's quota: %v", err)
	}
}

func TestRateLimiterCleanExpired(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter()
	l.SetClock(func() time.Time { return now })

	_ = l.CheckAndRecord("stale")
	now = now.Add(2 * RateWindow)
	_ = l.CheckAndRecord("fresh")

	if removed := l.CleanExpired(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}
