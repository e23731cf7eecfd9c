package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/diary-api/internal/logging"
)

const (
	defaultLockKey = "diary:dispatch:lock"
	lockOpTimeout  = 2 * time.Second
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock that was taken over is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out while the lock still holds our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a single-key lease in Redis, renewed while held
type RedisLocker struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, logger *logging.Logger) (*RedisLocker, error) {
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	return &RedisLocker{client: client, key: defaultLockKey, ttl: ttl, logger: logger}, nil
}

// Acquire takes the lease with SET NX PX. The returned context is cancelled
// when the lease is lost or released; release stops renewal and frees the key.
func (l *RedisLocker) Acquire(ctx context.Context) (context.Context, func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, nil, false, nil
	}

	heldCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.renew(heldCtx, cancel, token)
	}()

	release := func() {
		cancel()
		<-stopped

		// the pass context may already be cancelled
		ctx, done := context.WithTimeout(context.Background(), lockOpTimeout)
		defer done()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Warn("failed to release dispatch lock", "key", l.key, "error", err)
		}
	}
	return heldCtx, release, true, nil
}

// renew extends the lease every ttl/3 until ctx ends. Losing the lease
// cancels the holder's context.
func (l *RedisLocker) renew(ctx context.Context, cancel context.CancelFunc, token string) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		opCtx, done := context.WithTimeout(context.WithoutCancel(ctx), lockOpTimeout)
		extended, err := extendScript.Run(opCtx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
		done()

		switch {
		case err != nil:
			// keep the pass; the next tick retries before the lease runs out
			l.logger.Warn("failed to extend dispatch lock", "key", l.key, "error", err)
		case extended == 0:
			l.logger.Warn("dispatch lock lost, cancelling pass", "key", l.key)
			cancel()
			return
		}
	}
}
