package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	m := NewMemory(100, time.Minute)
	defer m.Close()
	ctx := context.Background()

	if _, found, _ := m.Get(ctx, "missing"); found {
		t.Error("expected miss for unknown key")
	}

	m.Set(ctx, "a", []byte("one"), time.Minute)
	val, found, err := m.Get(ctx, "a")
	if err != nil || !found || string(val) != "one" {
		t.Errorf("Get = %q, %v, %v", val, found, err)
	}

	m.Delete(ctx, "a")
	if _, found, _ := m.Get(ctx, "a"); found {
		t.Error("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(100, time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "short", []byte("x"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, found, _ := m.Get(ctx, "short"); found {
		t.Error("expected expired entry to miss")
	}

	// Zero TTL entries never expire.
	m.Set(ctx, "forever", []byte("y"), 0)
	time.Sleep(5 * time.Millisecond)
	if _, found, _ := m.Get(ctx, "forever"); !found {
		t.Error("zero-TTL entry expired")
	}
}
