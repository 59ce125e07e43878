package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	if err != nil {
		t.Fatalf("connecting to miniredis: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestGetSetAndExpiry(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("expected v, got %q ok=%v err=%v", val, ok, err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected key to expire")
	}
}

func TestDeletePrefix(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()
	for i := 0; i < 250; i++ {
		mr.Set(fmt.Sprintf("rerank:%d", i), "x")
	}
	mr.Set("other:key", "x")

	n, err := c.DeletePrefix(ctx, "rerank:")
	if err != nil {
		t.Fatal(err)
	}
	if n != 250 {
		t.Errorf("expected 250 deletions, got %d", n)
	}
	if left := mr.Keys(); len(left) != 1 {
		t.Errorf("expected only other:key to remain, got %d keys", len(left))
	}
	if !mr.Exists("other:key") {
		t.Error("expected keys outside the prefix to survive")
	}
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewClient(config.RedisConfig{Addr: addr}); err == nil {
		t.Error("expected connection error")
	}
}
