package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// CacheConfig selects and sizes the cache used for search results and seat
// maps.  Backend is "redis" or "memory"; when redis is requested but no
// client is available the memory backend is used instead.  TTL bounds the
// life of every entry and MaxEntries bounds the memory backend.  Prefix
// namespaces the Redis keys.
type CacheConfig struct {
    Enabled    bool
    Backend    string
    TTL        time.Duration
    MaxEntries int
    Prefix     string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:    getenv("CACHE_ENABLED", "true") == "true",
        Backend:    strings.ToLower(getenv("CACHE_BACKEND", "redis")),
        TTL:        parseDur(getenv("CACHE_TTL", "10m")),
        MaxEntries: atoi(getenv("CACHE_MAX_ENTRIES", "4096")),
        Prefix:     getenv("CACHE_PREFIX", "cache"),
    }
    if cfg.MaxEntries <= 0 {
        cfg.MaxEntries = 4096
    }
    return cfg
}

// LockConfig selects how seat bookings on one showing are serialized:
// "local" uses an in-process keyed mutex, "redis" a SETNX lock shared by
// every instance.
type LockConfig struct {
    Backend    string
    TTL        time.Duration
    Retries    int
    RetryDelay time.Duration
}

func LoadLockConfig() LockConfig {
    cfg := LockConfig{
        Backend:    strings.ToLower(getenv("LOCK_BACKEND", "local")),
        TTL:        parseDur(getenv("LOCK_TTL", "5s")),
        Retries:    atoi(getenv("LOCK_RETRIES", "50")),
        RetryDelay: parseDur(getenv("LOCK_RETRY_DELAY", "20ms")),
    }
    if cfg.Retries < 1 {
        cfg.Retries = 1
    }
    return cfg
}

// Helper functions shared with ratelimit.go and amqp.go
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func atoi(s string) int {
    i, _ := strconv.Atoi(s)
    return i
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
