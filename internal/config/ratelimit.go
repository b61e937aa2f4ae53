package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig sizes the Redis token bucket in front of the booking and
// staff routes.  Each bucket holds Capacity tokens and regains RefillTokens
// every RefillInterval.  KeyStrategy names the request attributes that
// select a bucket (ip, user, route or a combination such as user_route).
//
// The default is user_route: both route groups run behind JWT auth, so a
// customer hammering POST /bookings drains only their own bucket for that
// route, while their browsing and other customers behind the same NAT are
// unaffected.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "user_route")),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.clamp()
    return cfg
}

// clamp repairs values the Lua script cannot work with.  A bucket must
// outlive several refill intervals, or an idle key would expire and come
// back full.
func (c *RateLimitConfig) clamp() {
    c.Capacity = max(c.Capacity, 1)
    c.RefillTokens = max(c.RefillTokens, 1)
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    c.TTL = max(c.TTL, 5*c.RefillInterval)
}

func envStr(k, def string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return def
}

func envBool(k string, def bool) bool {
    switch strings.ToLower(os.Getenv(k)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(k string, def int) int {
    n, err := strconv.Atoi(os.Getenv(k))
    if err != nil {
        return def
    }
    return n
}

func envDur(k string, def time.Duration) time.Duration {
    d, err := time.ParseDuration(os.Getenv(k))
    if err != nil {
        return def
    }
    return d
}
