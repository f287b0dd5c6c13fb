package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/crdb"
	"github.com/robertarktes/pet-services-marketplace/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/pet-services-marketplace/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/pet-services-marketplace/internal/adapters/redis"
	"github.com/robertarktes/pet-services-marketplace/internal/auth"
	"github.com/robertarktes/pet-services-marketplace/internal/booking"
	"github.com/robertarktes/pet-services-marketplace/internal/catalog"
	"github.com/robertarktes/pet-services-marketplace/internal/config"
	"github.com/robertarktes/pet-services-marketplace/internal/escrow"
	httphandler "github.com/robertarktes/pet-services-marketplace/internal/http"
	"github.com/robertarktes/pet-services-marketplace/internal/idempotency"
	"github.com/robertarktes/pet-services-marketplace/internal/keylock"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"github.com/robertarktes/pet-services-marketplace/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stores struct {
	users    auth.UserStore
	catalog  catalogStore
	bookings booking.Repository
	payments escrow.Store
	checks   []httphandler.ReadinessCheck
	close    func()
}

// catalogStore serves both the catalog service and the ledger's lookups.
type catalogStore interface {
	catalog.Repository
	booking.Directory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg, "pm-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	observability.InitMetrics()

	s, err := openStores(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer s.close()

	var (
		locker keylock.Locker = keylock.NewLocal()
		idemp                 = idempotency.NewIdempotency(idempotency.NewMemoryStore(), cfg.IdempotencyTTL)
		rl                    = rateLimit.NewRateLimiter(rateLimit.NewMemoryCounter())
	)
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		redisCache := redisadapter.NewCache(redisClient)
		locker = redisadapter.NewLocker(redisClient, cfg.LockTTL)
		idemp = idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
		rl = rateLimit.NewRateLimiter(redisCache)
		s.checks = append(s.checks, httphandler.ReadinessCheck{Name: "redis", Check: redisCache.Ping})
	}

	authSvc := auth.NewService(s.users, cfg.JWTSecret, cfg.TokenTTL)
	catalogSvc := catalog.NewService(s.catalog)
	coordinator := escrow.NewCoordinator(s.payments, locker, logger)
	ledger := booking.NewLedger(s.bookings, coordinator, s.catalog, locker, logger)

	handlers := httphandler.NewHandlers(authSvc, catalogSvc, ledger, s.checks, logger)
	r := httphandler.SetupRouter(handlers, logger, httphandler.RouterConfig{
		Tokens:         authSvc,
		RateLimiter:    rl,
		RatePerMinute:  cfg.RateLimitPerMinute,
		Idempotency:    idemp,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).WithField("storage", cfg.StorageBackend).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}

func openStores(ctx context.Context, cfg *config.Config, logger observability.Logger) (*stores, error) {
	if cfg.StorageBackend == config.StorageMemory {
		return &stores{
			users:    memory.NewUsers(),
			catalog:  memory.NewCatalog(),
			bookings: memory.NewBookings(),
			payments: memory.NewPaymentHolds(),
			close:    func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		return nil, err
	}
	if err := crdb.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		users:    repo,
		catalog:  mongoadapter.NewCatalogRepository(mongoClient.Database(cfg.MongoDB), logger),
		bookings: repo,
		payments: crdb.NewPaymentHolds(pool),
		checks: []httphandler.ReadinessCheck{
			{Name: "crdb", Check: repo.Ping},
			{Name: "mongo", Check: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }},
		},
		close: func() {
			mongoClient.Disconnect(context.Background())
			pool.Close()
		},
	}, nil
}
