package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestTier(t *testing.T) *SQLiteTier {
	t.Helper()
	tier, err := OpenSQLiteTier(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tier.Close() })
	return tier
}

func TestSQLiteTier_RoundTrip(t *testing.T) {
	tier := newTestTier(t)

	now := time.Now()
	err := tier.Store(&Entry{
		Key:       "fred:observations:GDPC1",
		Value:     map[string]any{"value": 27000.5, "date": "2025-01-01"},
		StoredAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	e, ok, err := tier.Load("fred:observations:GDPC1")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	m, ok := e.Value.(map[string]any)
	if !ok || m["date"] != "2025-01-01" {
		t.Fatalf("Value = %#v; want stored map", e.Value)
	}
}

func TestSQLiteTier_NullSentinelRoundTrips(t *testing.T) {
	tier := newTestTier(t)

	now := time.Now()
	if err := tier.Store(&Entry{
		Key: "k", Value: Null, StoredAt: now, ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	e, ok, err := tier.Load("k")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if !IsNull(e.Value) {
		t.Fatalf("Value = %#v; want null sentinel", e.Value)
	}
}

func TestSQLiteTier_ExpiredDiscardedOnRead(t *testing.T) {
	tier := newTestTier(t)

	now := time.Now()
	if err := tier.Store(&Entry{
		Key: "old", Value: "v", StoredAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	_, ok, err := tier.Load("old")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expired persisted entry must be discarded on read")
	}
}

func TestCache_PromotesFromTier(t *testing.T) {
	tier := newTestTier(t)

	// Simulate an earlier process writing through.
	first := New(WithTier(tier))
	if err := first.Set("k", "persisted", time.Hour); err != nil {
		t.Fatal(err)
	}

	// A fresh memory tier sees the persisted entry on miss.
	second := New(WithTier(tier))
	v, ok := second.Get("k")
	if !ok || v != "persisted" {
		t.Fatalf("Get = %v, %v; want promoted value", v, ok)
	}
	if !second.Has("k") {
		t.Fatal("promoted entry should now live in memory")
	}
}
