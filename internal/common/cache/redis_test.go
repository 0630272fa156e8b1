package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"autograder/internal/common/cache"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })
	return redisCache, mr
}

func TestSetGet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "v" {
		t.Fatalf("get = %q", got)
	}
}

func TestSetNX(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", 1, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first setnx = (%v, %v)", ok, err)
	}
	ok, err = c.SetNX(ctx, "k", 2, time.Minute)
	if err != nil || ok {
		t.Fatalf("second setnx = (%v, %v), want not acquired", ok, err)
	}
}

func TestIncrAndTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	if _, err := c.SetNX(ctx, "counter", 1, time.Minute); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	n, err := c.Incr(ctx, "counter")
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if n != 2 {
		t.Fatalf("incr = %d, want 2", n)
	}

	ttl, err := c.TTL(ctx, "counter")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := c.Get(ctx, "counter"); err == nil {
		t.Fatalf("key survived past its ttl")
	}
}

func TestNewRedisCacheValidatesAddr(t *testing.T) {
	if _, err := cache.NewRedisCache(""); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
