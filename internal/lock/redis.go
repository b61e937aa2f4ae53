package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
)

// ErrNotOwned means the lock expired or was taken over before release.
var ErrNotOwned = errors.New("lock not owned")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker is a Locker shared by every instance talking to the same
// Redis.  Each lock is a SETNX key holding a random token and expiring
// after ttl, so a crashed holder cannot block the key forever.
type RedisLocker struct {
	client     *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	newToken   func() string
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, retries int, retryDelay time.Duration) *RedisLocker {
	if retries < 1 {
		retries = 1
	}
	return &RedisLocker{client: client, ttl: ttl, retries: retries, retryDelay: retryDelay, newToken: uuid.NewString}
}

// Held is one acquired Redis lock.
type Held struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire makes a single SETNX attempt.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (*Held, error) {
	lockKey := "lock:" + key
	token := l.newToken()
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", lockKey, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Held{client: l.client, key: lockKey, token: token}, nil
}

// AcquireWithRetry retries Acquire until it succeeds, the retry budget is
// spent, or ctx is done.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string) (*Held, error) {
	var lastErr error
	for i := 0; i < l.retries; i++ {
		h, err := l.Acquire(ctx, key)
		if err == nil {
			return h, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}
		if i == l.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return nil, lastErr
}

// Release deletes the key if we still own it.
func (h *Held) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, h.client, []string{h.key}, h.token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", h.key, err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	h, err := l.AcquireWithRetry(ctx, key)
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.Release(ctx); err != nil {
			logger.Warn("lock release failed", zap.String("key", h.key), zap.Error(err))
		}
	}, nil
}
