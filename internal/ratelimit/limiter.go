package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PurposeTokenCreate = "pat_create"
	PurposeTestEmail   = "test_email"
)

// Rule is a fixed-window limit
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter counts requests per purpose and key in Redis fixed windows
type Limiter struct {
	client redis.Cmdable
	rules  map[string]Rule
}

func NewLimiter(client redis.Cmdable, rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = make(map[string]Rule)
	}
	return &Limiter{client: client, rules: rules}
}

func rateKey(purpose, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, key)
}

// CheckWithPurpose reports whether key has exhausted its quota for purpose.
// Purposes without a rule are never limited.
func (l *Limiter) CheckWithPurpose(ctx context.Context, key, purpose string) (bool, error) {
	rule, ok := l.rules[purpose]
	if !ok || rule.Limit <= 0 {
		return false, nil
	}

	count, err := l.client.Get(ctx, rateKey(purpose, key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate counter: %w", err)
	}

	return count >= rule.Limit, nil
}

// RecordWithPurpose counts one request; the window starts with the first request
func (l *Limiter) RecordWithPurpose(ctx context.Context, key, purpose string) error {
	rule, ok := l.rules[purpose]
	if !ok || rule.Limit <= 0 {
		return nil
	}

	k := rateKey(purpose, key)
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, k, rule.Window).Err(); err != nil {
			return fmt.Errorf("failed to set rate window: %w", err)
		}
	}

	return nil
}
