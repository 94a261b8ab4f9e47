package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache/memory"
)

func TestCache_SetGet(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "user:U1", []byte(`{"id":"U1"}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "user:U1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != `{"id":"U1"}` {
		t.Errorf("unexpected value %q", val)
	}

	// Returned slices are copies.
	val[0] = 'X'
	again, _ := c.Get(ctx, "user:U1")
	if again[0] != '{' {
		t.Error("cache value was mutated through returned slice")
	}
}

func TestCache_GetNotFound(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()

	if _, err := c.Get(context.Background(), "nonexistent"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if exists, _ := c.Exists(ctx, "key1"); !exists {
		t.Error("key should exist initially")
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "key1"); err != cache.ErrExpired {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	if exists, _ := c.Exists(ctx, "key1"); exists {
		t.Error("expired key should not exist")
	}
}

func TestCache_Delete(t *testing.T) {
	c := memory.New(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "key1", []byte("v"), 0)
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "key1"); err != cache.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := memory.New(time.Minute, time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewFromConfig(t *testing.T) {
	c, err := cache.NewFromConfig("memory", map[string]any{
		"memory": map[string]any{"default_ttl": "30s", "cleanup_interval": "1m"},
	})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	defer c.Close()

	if _, err := cache.NewFromConfig("valkey", nil); err == nil {
		t.Error("expected error for unknown driver")
	}
}
