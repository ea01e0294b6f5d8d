// Command api runs the OCandle marketplace HTTP server.
//
// @title                       OCandle Marketplace API
// @version                     1.0
// @description                 Marketplace backend connecting local food sellers with buyers.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

//go:generate swag init -g cmd/api/main.go -d ../.. -o ../../docs

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/ocandle/marketplace/docs"
	"github.com/ocandle/marketplace/internal/api"
	"github.com/ocandle/marketplace/internal/api/handler"
	"github.com/ocandle/marketplace/internal/core/ports"
	"github.com/ocandle/marketplace/internal/core/service"
	"github.com/ocandle/marketplace/internal/infrastructure/auth"
	"github.com/ocandle/marketplace/internal/infrastructure/broker"
	"github.com/ocandle/marketplace/internal/infrastructure/config"
	"github.com/ocandle/marketplace/internal/infrastructure/db/mongo"
	"github.com/ocandle/marketplace/internal/infrastructure/db/redis"
	"github.com/ocandle/marketplace/internal/infrastructure/media"
	"github.com/ocandle/marketplace/internal/infrastructure/queue"
	"github.com/ocandle/marketplace/internal/infrastructure/ratelimit"
	"github.com/ocandle/marketplace/pkg/logger"
)

const (
	serviceName     = "ocandle-api"
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
)

type eventPublisher interface {
	ports.OrderEventPublisher
	io.Closer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: serviceName})
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: serviceName})

	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	checks := []handler.DependencyCheck{{
		Name: "mongodb",
		Ping: func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}}

	var limiter ports.RateLimitStore
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer closeQuietly(log, "redis", rdb)
		limiter = redis.NewRateLimitStore(rdb)
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: redis.Pinger(rdb)})
	} else {
		mem := ratelimit.NewMemoryStore()
		go mem.Run(ctx, sweepInterval)
		limiter = mem
		log.Info().Msg("REDIS_ADDR not set, rate limits are kept in memory")
	}

	store, err := media.Open(ctx, cfg.Media.BucketURL, cfg.Media.PublicBaseURL, log)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "media bucket", store)
	checks = append(checks, handler.DependencyCheck{Name: "media", Ping: store.Ping})

	// --- Order events ---
	var publisher eventPublisher
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		publisher = broker.NewKafkaPublisher(brokers, cfg.Kafka.OrderTopic, log)
	} else {
		publisher = broker.NewLogPublisher(log)
		log.Info().Msg("KAFKA_BROKERS not set, order events are only logged")
	}
	defer closeQuietly(log, "event publisher", publisher)

	dispatcher := queue.NewDispatcher(cfg.Events.Workers, cfg.Events.QueueSize, publisher, log)
	dispatcher.Start(ctx)

	// --- Services ---
	users := mongo.NewUserRepository(db)
	products := mongo.NewProductRepository(db)
	orders := mongo.NewOrderRepository(db)

	authService := service.NewAuthService(users, auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpire), store, log)
	catalogService := service.NewCatalogService(products, users, store, log)
	orderService := service.NewOrderService(orders, products, users, catalogService, dispatcher, log)
	directoryService := service.NewDirectoryService(users, products, catalogService, log)

	e := api.NewRouter(api.Services{
		Auth:      authService,
		Catalog:   catalogService,
		Orders:    orderService,
		Directory: directoryService,
	}, api.RouterConfig{
		Log:                    log,
		Development:            !cfg.IsProduction(),
		AllowedOrigins:         cfg.AllowedOrigins(),
		RequireVerifiedSellers: cfg.RequireVerifiedSellers,
		RateLimitStore:         limiter,
		Media:                  store,
		ReadinessChecks:        checks,
	})

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		addr := net.JoinHostPort("", cfg.Port)
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("event dispatcher did not drain")
	}
	return nil
}

func closeQuietly(log zerolog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("component", name).Msg("close failed")
	}
}
