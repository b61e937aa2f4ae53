package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// Redis stores every entry under its own key, <prefix>:<ns>:<gen>:<field>,
// with its own expiry, so a busy namespace cannot keep old entries alive.
// The generation lives in <prefix>:<ns>:gen; Invalidate increments it and
// entries of earlier generations simply expire.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis falls back to a ten minute TTL when ttl is not positive, since
// entries of retired generations are only ever reclaimed by expiry.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(ns string) string {
	if r.prefix == "" {
		return ns
	}
	return r.prefix + ":" + ns
}

func (r *Redis) genKey(ns string) string { return r.key(ns) + ":gen" }

func (r *Redis) entryKey(ns string, gen uint64, field string) string {
	return r.key(ns) + ":" + strconv.FormatUint(gen, 10) + ":" + field
}

func (r *Redis) Generation(ctx context.Context, ns string) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey(ns)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *Redis) Get(ctx context.Context, ns string, gen uint64, field string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.entryKey(ns, gen, field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set writes under gen.  If ns was invalidated after gen was read the key
// belongs to a retired generation: no reader looks it up and it expires.
func (r *Redis) Set(ctx context.Context, ns string, gen uint64, field string, val []byte) error {
	return r.client.Set(ctx, r.entryKey(ns, gen, field), val, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, ns string) error {
	return r.client.Incr(ctx, r.genKey(ns)).Err()
}
