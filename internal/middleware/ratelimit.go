package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-booking/internal/config"
    "github.com/iliyamo/cinema-booking/internal/logger"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
        local key = KEYS[1]
        local now_ms = tonumber(ARGV[1])
        local capacity = tonumber(ARGV[2])
        local refill_tokens = tonumber(ARGV[3])
        local interval_ms = tonumber(ARGV[4])
        local ttl_seconds = tonumber(ARGV[5])

        local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
        local tokens = tonumber(state[1])
        local last_refill = tonumber(state[2])

        if tokens == nil or last_refill == nil then
            tokens = capacity
            last_refill = now_ms
        end

        if interval_ms > 0 and refill_tokens > 0 then
            local elapsed = math.max(0, now_ms - last_refill)
            local intervals = math.floor(elapsed / interval_ms)
            if intervals > 0 then
                tokens = math.min(capacity, tokens + (intervals * refill_tokens))
                last_refill = last_refill + (intervals * interval_ms)
            end
        end

        local allowed = 0
        local retry_after_ms = 0
        if tokens > 0 then
            allowed = 1
            tokens = tokens - 1
        else
            local until_next = interval_ms - (now_ms - last_refill)
            if until_next < 0 then until_next = 0 end
            retry_after_ms = until_next
        end

        redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
        redis.call('EXPIRE', key, ttl_seconds)

        return { allowed, tokens, retry_after_ms }
`)

// clock is replaced in tests.
var clock = time.Now

// bucketState is what the script reports back for one request.
type bucketState struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func parseBucketState(v interface{}) (bucketState, bool) {
    arr, ok := v.([]interface{})
    if !ok || len(arr) != 3 {
        return bucketState{}, false
    }
    return bucketState{
        allowed:   asInt64(arr[0]) == 1,
        remaining: asInt64(arr[1]),
        retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, true
}

// NewTokenBucket limits requests with a token bucket kept in Redis, one
// bucket per key built by buildRateKey.  It is a pass-through when rate
// limiting is disabled or Redis is unavailable, and it fails open when a
// script call errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            res, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
                clock().UnixMilli(),
                cfg.Capacity,
                cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(),
                int64(cfg.TTL/time.Second),
            ).Result()
            if err != nil {
                logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            st, ok := parseBucketState(res)
            if !ok {
                logger.Warn("rate limit script returned unexpected result", zap.String("key", key), zap.Any("result", res))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if st.allowed {
                return next(c)
            }

            secs := max(int(math.Ceil(st.retry.Seconds())), 0)
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                logger.Info("rate limited", zap.String("key", key), zap.Duration("retry", st.retry))
            }
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

// buildRateKey joins the prefix with the attributes named by the key
// strategy.  Unknown strategies use every attribute.  Anonymous callers
// share the "anon" user.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    attrs := map[string]string{
        "ip":    ip,
        "user":  userKey(c),
        "route": c.Request().Method + " " + c.Path(),
    }

    var names []string
    switch s := strings.ToLower(cfg.KeyStrategy); s {
    case "ip", "user", "route", "ip_user", "ip_route", "user_route":
        names = strings.Split(s, "_")
    default:
        names = []string{"ip", "user", "route"}
    }

    parts := []string{cfg.Prefix}
    for _, n := range names {
        parts = append(parts, n, attrs[n])
    }
    return strings.Join(parts, ":")
}
