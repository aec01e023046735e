package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetOverwritesAndResetsExpiry(t *testing.T) {
	current := time.Unix(1000, 0)
	s := NewWithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("one"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	current = current.Add(50 * time.Second)
	if err := s.SetWithTTL(ctx, "k", []byte("two"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// 70s after the first write but only 20s after the overwrite.
	current = current.Add(20 * time.Second)
	raw, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(raw) != "two" {
		t.Fatalf("expected overwrite, got %s", raw)
	}
}

func TestExpiredEntryReadsAsMiss(t *testing.T) {
	current := time.Unix(1000, 0)
	s := NewWithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	current = current.Add(61 * time.Second)

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("expiry must not error: %v", err)
	}
	if ok {
		t.Fatalf("expected expired entry to read as miss")
	}
}

func TestExpiryDeleteSparesRefreshedEntry(t *testing.T) {
	current := time.Unix(1000, 0)
	s := NewWithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte("stale"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	current = current.Add(61 * time.Second)

	// A writer refreshes the key between a reader observing the stale
	// entry and its expiry delete; the delete must not take the fresh one.
	if err := s.SetWithTTL(ctx, "k", []byte("fresh"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.expire("k")

	raw, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected refreshed entry to survive, got ok=%v err=%v", ok, err)
	}
	if string(raw) != "fresh" {
		t.Fatalf("expected fresh value, got %s", raw)
	}
}

func TestMissingKeyIsMiss(t *testing.T) {
	s := New()
	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}
