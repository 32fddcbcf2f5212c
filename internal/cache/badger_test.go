package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(&BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadgerCache failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCacheGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Expected value 'v', got %q", got)
	}

	m := c.GetMetrics()
	if m.Hits != 1 || m.Misses != 1 || m.Sets != 1 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
	if m.Keys != 1 {
		t.Errorf("Expected 1 key, got %d", m.Keys)
	}
}

func TestBadgerCacheDeleteByPattern(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	kg := NewKeyGenerator("")

	for _, k := range []string{
		kg.RegisterKey("10.0.0.1", "chipID"),
		kg.RegisterKey("10.0.0.1", "macInfo"),
		kg.RegisterKey("10.0.0.2", "chipID"),
	} {
		if err := c.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := c.DeleteByPattern(ctx, kg.HostPattern("10.0.0.1")); err != nil {
		t.Fatalf("DeleteByPattern failed: %v", err)
	}

	if _, err := c.Get(ctx, kg.RegisterKey("10.0.0.1", "chipID")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected key for 10.0.0.1 to be deleted, got %v", err)
	}
	if _, err := c.Get(ctx, kg.RegisterKey("10.0.0.2", "chipID")); err != nil {
		t.Errorf("Expected key for 10.0.0.2 to survive, got %v", err)
	}
}

func TestNewBadgerCacheRequiresPath(t *testing.T) {
	if _, err := NewBadgerCache(&BadgerConfig{}); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestKeyGenerator(t *testing.T) {
	kg := NewKeyGenerator("")

	tests := []struct {
		host     string
		endpoint string
		want     string
	}{
		{"10.0.0.1", "chipID", "mocad:reg:10.0.0.1:chipID"},
		{"Adapter.LAN:8080", "macInfo", "mocad:reg:adapter.lan_8080:macInfo"},
		{"[fe80::1]", "chipID", "mocad:reg:fe80__1:chipID"},
	}

	for _, tt := range tests {
		if got := kg.RegisterKey(tt.host, tt.endpoint); got != tt.want {
			t.Errorf("RegisterKey(%q, %q) = %q, want %q", tt.host, tt.endpoint, got, tt.want)
		}
	}

	if got := kg.HostPattern("10.0.0.1"); got != "mocad:reg:10.0.0.1:*" {
		t.Errorf("HostPattern = %q", got)
	}
}

func TestRegisterCache(t *testing.T) {
	ctx := context.Background()
	rc := NewRegisterCache(newTestCache(t), time.Hour)

	if _, ok := rc.Get(ctx, "10.0.0.1", "chipID"); ok {
		t.Error("Expected miss on empty cache")
	}

	if err := rc.Put(ctx, "10.0.0.1", "chipID", []string{"0x16"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	words, ok := rc.Get(ctx, "10.0.0.1", "chipID")
	if !ok || len(words) != 1 || words[0] != "0x16" {
		t.Errorf("Expected cached [0x16], got %v (ok=%v)", words, ok)
	}

	if err := rc.Invalidate(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, ok := rc.Get(ctx, "10.0.0.1", "chipID"); ok {
		t.Error("Expected miss after Invalidate")
	}
}

func TestNilRegisterCache(t *testing.T) {
	var rc *RegisterCache
	ctx := context.Background()

	if _, ok := rc.Get(ctx, "h", "chipID"); ok {
		t.Error("Expected miss on nil cache")
	}
	if err := rc.Put(ctx, "h", "chipID", []string{"0x1"}); err != nil {
		t.Errorf("Expected nil error on nil cache, got %v", err)
	}
}
