package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cataloghttp "github.com/dejobratic/storefront/internal/catalog/adapters/http"
	catalogmemory "github.com/dejobratic/storefront/internal/catalog/adapters/memory"
	catalogpostgres "github.com/dejobratic/storefront/internal/catalog/adapters/postgres"
	catalogapp "github.com/dejobratic/storefront/internal/catalog/app"
	catalogports "github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/config"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/httpserver"
	idemmemory "github.com/dejobratic/storefront/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/storefront/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/storefront/internal/idempotency/redis"
	"github.com/dejobratic/storefront/internal/identity"
	identitymemory "github.com/dejobratic/storefront/internal/identity/memory"
	identitypostgres "github.com/dejobratic/storefront/internal/identity/postgres"
	"github.com/dejobratic/storefront/internal/kafka"
	ordersadapters "github.com/dejobratic/storefront/internal/orders/adapters"
	orderscatalog "github.com/dejobratic/storefront/internal/orders/adapters/catalog"
	ordershttp "github.com/dejobratic/storefront/internal/orders/adapters/http"
	ordersmemory "github.com/dejobratic/storefront/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/storefront/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/storefront/internal/orders/app"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	ordersmetrics "github.com/dejobratic/storefront/internal/orders/metrics"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/dejobratic/storefront/internal/telemetry"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

// stores groups the persistence adapters selected by STORE.
type stores struct {
	products ports.Catalog
	catalog  catalogports.ProductRepository
	orders   ports.OrderRepository
	tx       ports.Transactor
	users    ports.UserDirectory
	idem     ports.IdempotencyStore
	checks   map[string]database.Pinger
	close    func()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := telemetry.ParseLevel(cfg.Telemetry.LogLevel)
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(level).With("service", cfg.Service.Name, "env", cfg.Service.Environment)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()
	meter := tel.Meter("github.com/dejobratic/storefront")

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("database metrics: %w", err)
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("order metrics: %w", err)
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("kafka metrics: %w", err)
	}
	httpMetrics, err := httpserver.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}

	events, closeEvents := openEventBus(cfg, logger)
	defer func() {
		if err := closeEvents(); err != nil {
			logger.Error("event bus close failed", "error", err)
		}
	}()

	resolver, err := identity.NewJWTResolver(identity.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("jwt resolver: %w", err)
	}
	authenticate := identity.Authenticate(resolver)

	orders := ordersapp.NewService(ordersapp.Dependencies{
		Repo:    ordersadapters.NewObservableRepository(st.orders, dbMetrics),
		Catalog: st.products,
		Tx:      st.tx,
		Users:   st.users,
		Events:  ordersadapters.NewObservableEventBus(events, kafkaMetrics),
		Idem:    st.idem,
		Logger:  logger,
		Metrics: orderMetrics,
		Retry: commands.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
	})
	products := catalogapp.NewService(st.catalog)

	opts := httpserver.Options{
		Addr:            cfg.HTTP.Addr(),
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		MetricsPath:     cfg.HTTP.MetricsPath,
		ReadinessChecks: st.checks,
	}
	router := httpserver.NewRouter(opts, logger, httpMetrics)
	cataloghttp.NewHandler(products, authenticate, logger).Register(router)
	ordershttp.NewHandler(orders, authenticate, logger).Register(router)

	return httpserver.NewServer(opts, router, logger).Run(ctx, cfg.HTTP.ShutdownGrace)
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Service.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		catalog := catalogmemory.NewRepository()
		st := &stores{
			products: orderscatalog.NewAdapter(catalog),
			catalog:  catalog,
			orders:   ordersmemory.NewRepository(),
			tx:       database.NewMemoryTransactor(),
			users:    identitymemory.NewDirectory(),
			idem:     idemmemory.NewStore(cfg.Idempotency.TTL),
			checks:   map[string]database.Pinger{},
			close:    func() {},
		}
		return withRedis(st, cfg, logger)
	}

	pool, err := database.NewPool(ctx, cfg.Database.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.ConnString(), cfg.Database.MigrationsPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed", "version", version)
	}

	catalog := catalogpostgres.NewRepository(pool)
	st := &stores{
		products: orderscatalog.NewAdapter(catalog),
		catalog:  catalog,
		orders:   orderspostgres.NewRepository(pool),
		tx:       database.NewTransactor(pool),
		users:    identitypostgres.NewDirectory(pool),
		idem:     idempostgres.NewStore(pool, cfg.Idempotency.TTL),
		checks:   map[string]database.Pinger{"postgres": pool},
		close:    pool.Close,
	}
	return withRedis(st, cfg, logger)
}

// withRedis swaps the idempotency store for Redis when REDIS_URL is set.
func withRedis(st *stores, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Redis.URL == "" {
		return st, nil
	}

	client, err := idemredis.NewClient(cfg.Redis.URL)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("redis client: %w", err)
	}

	st.idem = idemredis.NewStore(client, cfg.Idempotency.TTL)
	st.checks["redis"] = idemredis.Pinger{Client: client}
	closeStore := st.close
	st.close = func() {
		if err := client.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
		closeStore()
	}
	logger.Info("idempotency keys stored in redis")
	return st, nil
}

type eventBus interface {
	ports.EventBus
	Close() error
}

func openEventBus(cfg *config.Config, logger *slog.Logger) (ports.EventBus, func() error) {
	var bus eventBus
	if cfg.Kafka.Enabled() {
		logger.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		bus = kafka.NewEventBus(kafka.WriterConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
	} else {
		logger.Info("no kafka brokers configured; order events are logged only")
		bus = kafka.NewNoopEventBus(logger)
	}
	return bus, bus.Close
}
