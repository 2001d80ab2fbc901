package insight

import (
	"testing"
	"time"

	"coinwise/internal/core"
)

func window(start, end time.Time) core.TimeWindow {
	return core.TimeWindow{Start: start, End: end}
}

func TestFingerprintDeterministic(t *testing.T) {
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	a := Fingerprint("u1", window(start, end), "cat1")
	b := Fingerprint("u1", window(start, end), "cat1")
	if a != b {
		t.Fatalf("identical inputs hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestFingerprintDiscriminates(t *testing.T) {
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	base := Fingerprint("u1", window(start, end), "cat1")

	variants := map[string]string{
		"different owner":    Fingerprint("u2", window(start, end), "cat1"),
		"different start":    Fingerprint("u1", window(start.AddDate(0, 0, 1), end), "cat1"),
		"different end":      Fingerprint("u1", window(start, end.AddDate(0, 0, 1)), "cat1"),
		"different category": Fingerprint("u1", window(start, end), "cat2"),
		"no category":        Fingerprint("u1", window(start, end), ""),
		"unbounded":          Fingerprint("u1", core.TimeWindow{All: true}, "cat1"),
	}
	for name, fp := range variants {
		if fp == base {
			t.Errorf("%s produced the same fingerprint", name)
		}
	}
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(10)
	c.SetClock(func() time.Time { return now })

	payload := CachedInsight{
		Insights:    Insights{FinancialHealthScore: 7},
		GeneratedAt: now,
	}
	c.Store("fp", payload)

	now = now.Add(CacheTTL - time.Minute)
	hit, age, ok := c.Lookup("fp")
	if !ok {
		t.Fatal("expected hit inside the TTL")
	}
	if hit.Insights.FinancialHealthScore != 7 {
		t.Errorf("score = %d", hit.Insights.FinancialHealthScore)
	}
	if age != CacheTTL-time.Minute {
		t.Errorf("age = %v", age)
	}

	now = now.Add(2 * time.Minute)
	if _, _, ok := c.Lookup("fp"); ok {
		t.Fatal("expected miss past the TTL")
	}
}
