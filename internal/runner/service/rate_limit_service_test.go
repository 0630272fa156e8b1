package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"autograder/internal/common/cache"
	"autograder/internal/runner/service"
	pkgerrors "autograder/pkg/errors"
)

func newTestCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("create redis cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })
	return redisCache, mr
}

func TestAllowUnderLimit(t *testing.T) {
	redisCache, _ := newTestCache(t)
	limiter := service.NewRateLimitService(redisCache, time.Minute, time.Second)

	for i := 0; i < 3; i++ {
		if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 3); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
}

func TestAllowRejectsOverLimit(t *testing.T) {
	redisCache, _ := newTestCache(t)
	limiter := service.NewRateLimitService(redisCache, time.Minute, time.Second)

	for i := 0; i < 2; i++ {
		if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 2); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
	err := limiter.Allow(context.Background(), "runner:rate:student:s1", 2)
	if !pkgerrors.Is(err, pkgerrors.SubmitTooFrequently) {
		t.Fatalf("err = %v, want SubmitTooFrequently", err)
	}
}

func TestAllowWindowExpiry(t *testing.T) {
	redisCache, mr := newTestCache(t)
	limiter := service.NewRateLimitService(redisCache, time.Minute, time.Second)

	if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 1); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 1); !pkgerrors.Is(err, pkgerrors.SubmitTooFrequently) {
		t.Fatalf("err = %v, want SubmitTooFrequently inside window", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 1); err != nil {
		t.Fatalf("request after window rejected: %v", err)
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	redisCache, _ := newTestCache(t)
	limiter := service.NewRateLimitService(redisCache, time.Minute, time.Second)

	if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 1); err != nil {
		t.Fatalf("s1 rejected: %v", err)
	}
	if err := limiter.Allow(context.Background(), "runner:rate:student:s2", 1); err != nil {
		t.Fatalf("s2 must have its own window: %v", err)
	}
}

func TestAllowDisabledLimit(t *testing.T) {
	redisCache, _ := newTestCache(t)
	limiter := service.NewRateLimitService(redisCache, time.Minute, time.Second)

	for i := 0; i < 10; i++ {
		if err := limiter.Allow(context.Background(), "runner:rate:student:s1", 0); err != nil {
			t.Fatalf("zero max must disable limiting: %v", err)
		}
	}
}

func TestAllowWithoutCache(t *testing.T) {
	limiter := service.NewRateLimitService(nil, time.Minute, time.Second)
	err := limiter.Allow(context.Background(), "runner:rate:student:s1", 1)
	if !pkgerrors.Is(err, pkgerrors.ServiceUnavailable) {
		t.Fatalf("err = %v, want ServiceUnavailable", err)
	}
}
