package service

import (
	"context"
	"fmt"
	"time"

	"autograder/internal/common/cache"
	pkgerrors "autograder/pkg/errors"
)

// RateLimitService enforces fixed-window submission limits using Redis.
type RateLimitService struct {
	cache        cache.BasicOps
	window       time.Duration
	redisTimeout time.Duration
}

func NewRateLimitService(cacheClient cache.BasicOps, window time.Duration, redisTimeout time.Duration) *RateLimitService {
	return &RateLimitService{cache: cacheClient, window: window, redisTimeout: redisTimeout}
}

// Allow admits the request if fewer than max requests hit the key inside the
// current window.
func (s *RateLimitService) Allow(ctx context.Context, key string, max int) error {
	if s.cache == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 {
		return nil
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.redisTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, s.window)
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
	}
	var count int64
	if acquired {
		count = 1
	} else {
		count, err = s.cache.Incr(ctxCache, key)
		if err != nil {
			return pkgerrors.Wrapf(err, pkgerrors.CacheError, "rate limit check failed")
		}
		ttl, ttlErr := s.cache.TTL(ctxCache, key)
		if ttlErr == nil && ttl <= 0 {
			_ = s.cache.Expire(ctxCache, key, s.window)
		}
	}
	if int(count) > max {
		return pkgerrors.New(pkgerrors.SubmitTooFrequently).WithMessage(fmt.Sprintf("rate limit exceeded for %s", key))
	}
	return nil
}
