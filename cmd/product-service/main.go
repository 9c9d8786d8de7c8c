package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/config"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/iyhunko/product-catalog/internal/repository/memory"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
	"github.com/iyhunko/product-catalog/internal/validation"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	redisKeyPrefix  = "product-catalog:"
	shutdownTimeout = 10 * time.Second
)

// storage bundles the store implementations selected by STORE_BACKEND.
type storage struct {
	products repository.ProductStore
	tx       repository.Transactor
	events   repository.EventStore
	check    controller.HealthCheck
	close    func() error
}

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handleErr("running product service", run(ctx, conf))
	slog.Info("Product service stopped")
}

func run(ctx context.Context, conf *config.Config) error {
	st, err := openStorage(ctx, conf)
	if err != nil {
		return err
	}
	defer st.close()

	readCache, cacheCheck, closeCache := openCache(conf)
	defer closeCache()

	checks := map[string]controller.HealthCheck{"store": st.check}
	if cacheCheck != nil {
		checks["cache"] = cacheCheck
	}

	g, gctx := errgroup.WithContext(ctx)

	var opts []service.Option
	if conf.ChangeEventsEnabled() {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		if err != nil {
			return err
		}
		publisher := sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
		outboxWorker := service.NewOutboxWorker(st.events, publisher, conf.Outbox.Interval)
		opts = append(opts, service.WithChangeEvents())

		g.Go(func() error {
			outboxWorker.Start(gctx)
			return nil
		})
	}

	productService := service.NewProductService(st.products, st.tx, readCache, opts...)
	productCtr := controller.NewProductController(productService, validation.NewValidator())
	engine := httpAPI.InitRouter(conf, gin.New(), controller.New(checks), productCtr)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		slog.Info("HTTP server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return metrics.NewServer(conf.MetricsServer.Port).Run(gctx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, conf *config.Config) (*storage, error) {
	if conf.StoreBackend == config.BackendMemory {
		slog.Warn("Using in-memory product store, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			products: store,
			tx:       store,
			events:   store,
			check:    func(context.Context) error { return nil },
			close:    func() error { return nil },
		}, nil
	}

	db, err := sql.StartDB(ctx, conf.Database)
	if err != nil {
		return nil, err
	}
	return &storage{
		products: sql.NewProductRepository(db),
		tx:       sql.NewTransactionalRepository(db),
		events:   sql.NewEventRepository(db),
		check:    db.PingContext,
		close:    db.Close,
	}, nil
}

func openCache(conf *config.Config) (cache.Cache, controller.HealthCheck, func() error) {
	if conf.Cache.Backend != config.BackendRedis {
		return cache.NewMemory(), nil, func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Cache.Redis.Addr,
		Password: conf.Cache.Redis.Password,
		DB:       conf.Cache.Redis.DB,
	})
	redisCache := cache.NewRedis(client, redisKeyPrefix, conf.Cache.TTL)
	slog.Info("Using redis product cache", slog.String("addr", conf.Cache.Redis.Addr), slog.Duration("ttl", conf.Cache.TTL))
	return redisCache, redisCache.Ping, client.Close
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
