package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; the nested groups have their own loaders.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost for password hashing
    AutoMigrate  bool   // apply embedded migrations on start-up

    StaffSignupCode string        // code required to self-register as STAFF (empty disables it)
    MetricsUser     string        // basic-auth user for /metrics (empty disables auth)
    MetricsPassword string        // basic-auth password for /metrics
    ShutdownTimeout time.Duration // grace period for in-flight requests on SIGTERM

    Cache     CacheConfig
    Lock      LockConfig
    RateLimit RateLimitConfig
    AMQP      AMQPConfig
}

// Load reads a .env file when one exists and then builds the Config from
// the environment.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // a missing .env is fine; real env vars still apply

    return Config{
        Env:          must("APP_ENV"),
        Port:         must("APP_PORT"),
        DBUser:       must("DB_USER"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        DBHost:       must("DB_HOST"),
        DBPort:       must("DB_PORT"),
        DBName:       must("DB_NAME"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
        BcryptCost:   mustInt("BCRYPT_COST"),
        AutoMigrate:  envBool("DB_AUTO_MIGRATE", true),

        StaffSignupCode: os.Getenv("STAFF_SIGNUP_CODE"),
        MetricsUser:     os.Getenv("METRICS_USER"),
        MetricsPassword: os.Getenv("METRICS_PASSWORD"),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),

        Cache:     LoadCacheConfig(),
        Lock:      LoadLockConfig(),
        RateLimit: LoadRateLimitConfig(),
        AMQP:      LoadAMQPConfig(),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
