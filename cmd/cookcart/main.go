package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/backend"
	"github.com/fjod/cookcart/internal/breaker"
	c "github.com/fjod/cookcart/internal/cache"
	"github.com/fjod/cookcart/internal/cartstore"
	"github.com/fjod/cookcart/internal/config"
	h "github.com/fjod/cookcart/internal/http"
	"github.com/fjod/cookcart/internal/logger"
	"github.com/fjod/cookcart/internal/order"
	"github.com/fjod/cookcart/internal/poller"
	"github.com/fjod/cookcart/internal/publisher"
	"github.com/fjod/cookcart/internal/repository"
	"github.com/fjod/cookcart/internal/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	l, err := logger.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer l.Sync()
	zap.ReplaceGlobals(l)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cart state: MongoDB behind a Redis cache
	mongoDB, err := cartstore.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		l.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoDB.Client().Disconnect(context.Background())

	cartRepo := cartstore.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		l.Fatal("Failed to create cart indexes", zap.Error(err))
	}
	l.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Fatal("Redis connection failed", zap.Error(err))
	}
	l.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	cartService := cartstore.NewService(cartRepo, c.NewRedisCache(redisClient, cfg.CartCacheTTL), l)

	// Addresses and orders
	var (
		addressRepo address.Repository
		placer      order.Placer
		workers     sync.WaitGroup
	)
	switch cfg.Backend {
	case config.BackendREST:
		client := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout)
		addressRepo, placer = client, client
		l.Info("Using REST backend", zap.String("url", cfg.BackendURL))
	default:
		repo, err := repository.NewRepository(&cfg.Postgres)
		if err != nil {
			l.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.RunMigrations(&cfg.Postgres); err != nil {
			l.Fatal("Failed to run migrations", zap.Error(err))
		}
		l.Info("Database migrations completed")
		addressRepo, placer = repo, repo

		outbox := publisher.NewOutboxPoller(repo, publisher.NewKafkaWriter(cfg.KafkaBrokers...), l)
		defer func() {
			if err := outbox.Close(); err != nil {
				l.Warn("Failed to close kafka writer", zap.Error(err))
			}
		}()
		workers.Add(1)
		go func() {
			defer workers.Done()
			outbox.Run(ctx)
		}()
	}

	settings := breaker.DefaultSettings()
	book := address.NewBook(breaker.NewAddressRepository(addressRepo, settings, l))
	submitter := order.NewSubmitter(breaker.NewOrderPlacer(placer, settings, l))

	sessions := session.NewManager(book, submitter,
		session.WithDeliveryFee(cfg.DeliveryFee),
		session.WithLogger(l),
		session.WithPersister(cartService),
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		sessions.Run(ctx, cfg.SessionSweepInterval, cfg.SessionIdleTimeout)
	}()

	cleaner := poller.NewCartCleaner(
		poller.NewKafkaReader(publisher.OrderEventsTopic, cfg.KafkaBrokers...),
		cartService,
		l,
	)
	defer cleaner.Close()
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleaner.Run(ctx)
	}()

	// gRPC health
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		l.Fatal("Failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		l.Info("gRPC health listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			l.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// HTTP API
	router := h.NewRouter(sessions, l, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cookcart"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info("HTTP API listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	l.Info("shutting down cookcart...")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	workers.Wait()

	l.Info("cookcart stopped")
}
