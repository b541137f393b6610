package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetDelete(t *testing.T) {
	m := NewMemory()
	defer m.Stop()
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing key: got ok=%v err=%v", ok, err)
	}

	if err := m.SetTTL(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("get: got %q ok=%v err=%v", v, ok, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("key should be gone after delete")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Stop()
	ctx := context.Background()

	if err := m.SetTTL(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("key should have expired")
	}
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory()
	defer m.Stop()
	ctx := context.Background()

	_ = m.SetTTL(ctx, "a", "1", time.Minute)
	_ = m.SetTTL(ctx, "b", "2", time.Minute)
	if m.Size() != 2 {
		t.Fatalf("expected 2 keys, got %d", m.Size())
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if m.Size() != 0 {
		t.Fatalf("expected empty cache, got %d keys", m.Size())
	}
}

func TestMemoryCleanExpired(t *testing.T) {
	m := NewMemory()
	defer m.Stop()
	ctx := context.Background()

	_ = m.SetTTL(ctx, "stale", "1", time.Millisecond)
	_ = m.SetTTL(ctx, "fresh", "2", time.Minute)
	time.Sleep(5 * time.Millisecond)

	if removed := m.CleanExpired(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok, _ := m.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh key should survive cleanup")
	}
}
