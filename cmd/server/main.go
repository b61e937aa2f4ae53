package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-booking/internal/cache"
	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/lock"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	m := metrics.New()
	c := newCache(cfg.Cache, rdb)
	locker := newLocker(cfg.Lock, rdb)

	var pub service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQP.Enabled {
		p := queue.NewPublisher(cfg.AMQP.URL)
		defer p.Close()
		pub = p
	}

	// ---- Repositories ----
	txm := database.NewTxManager(db)
	users := repository.NewUserRepo(db)
	halls := repository.NewHallRepo(db)
	movies := repository.NewMovieRepo(db)
	showings := repository.NewShowingRepo(db)
	bookings := repository.NewBookingRepo(db)

	// ---- Services ----
	scheduler := service.NewScheduler(txm, halls, movies, showings, c, pub, m)
	ledger := service.NewSeatLedger(txm, showings, bookings, locker, c, pub, m)
	detector := service.NewCollisionDetector(showings)
	catalog := service.NewCatalog(movies, c)
	seatMaps := service.NewSeatMapRenderer(halls, c, m)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Prometheus(m))

	limiter := middleware.NewTokenBucket(cfg.RateLimit, rdb)
	router.RegisterRoutes(e, db)
	router.RegisterMetrics(e, cfg.MetricsUser, cfg.MetricsPassword)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(catalog, movies, halls, showings, seatMaps))
	router.RegisterStaff(e, handler.NewStaffHandler(halls, scheduler, detector), cfg.JWTSecret, limiter)
	router.RegisterCustomer(e, handler.NewCustomerHandler(ledger, bookings), cfg.JWTSecret, limiter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	addr := ":" + cfg.Port
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return e.Shutdown(sctx)
	})

	if cfg.AMQP.Enabled {
		audit, err := logger.NewFile(cfg.AMQP.EventLog)
		if err != nil {
			logger.Fatal("event log unavailable", zap.String("path", cfg.AMQP.EventLog), zap.Error(err))
		}
		defer func() { _ = audit.Sync() }()
		consumer := queue.NewConsumer(cfg.AMQP.URL, audit)
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

// newCache picks the Redis cache when asked for and reachable, the
// in-process LRU otherwise.
func newCache(cfg config.CacheConfig, rdb *redis.Client) cache.Cache {
	switch {
	case !cfg.Enabled:
		return cache.Nop{}
	case cfg.Backend == "redis" && rdb != nil:
		return cache.NewRedis(rdb, cfg.Prefix, cfg.TTL)
	default:
		return cache.NewMemory(cfg.MaxEntries, cfg.TTL)
	}
}

// newLocker serializes bookings per showing across instances when Redis
// is configured, within this process otherwise.
func newLocker(cfg config.LockConfig, rdb *redis.Client) lock.Locker {
	if cfg.Backend == "redis" && rdb != nil {
		return lock.NewRedisLocker(rdb, cfg.TTL, cfg.Retries, cfg.RetryDelay)
	}
	return lock.NewKeyedMutex()
}
