package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
	"github.com/xenking/oolio-kart-basket/internal/domain/delivery"
	"github.com/xenking/oolio-kart-basket/internal/domain/pricing"
	"github.com/xenking/oolio-kart-basket/internal/handler"
	"github.com/xenking/oolio-kart-basket/internal/storage/postgres"
	rediscache "github.com/xenking/oolio-kart-basket/internal/storage/redis"
	"github.com/xenking/oolio-kart-basket/pkg/health"
	"github.com/xenking/oolio-kart-basket/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 2*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	deliveryMethods, err := cfg.Delivery.Methods()
	if err != nil {
		return err
	}

	opts := []basket.Option{
		basket.WithDefaults(cfg.Currency, cfg.Locale),
		basket.WithTracerProvider(m.TracerProvider()),
		basket.WithMeterProvider(m.MeterProvider()),
	}

	// Redis session cache, optional.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Error("Close redis", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		opts = append(opts, basket.WithCache(rediscache.NewBasketCache(rdb, cfg.SessionTTL)))
		lg.Info("Basket cache enabled", zap.String("redis", cfg.RedisAddr), zap.Duration("ttl", cfg.SessionTTL))
	}

	baskets, err := basket.NewService(
		pricing.NewPool(),
		postgres.NewProductRepository(pool),
		postgres.NewCustomerRepository(pool),
		delivery.NewRegistry(deliveryMethods...),
		cfg.Payment.Registry(),
		postgres.NewBasketRepository(pool),
		opts...,
	)
	if err != nil {
		return errors.Wrap(err, "create basket service")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(baskets).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.InjectLogger(zctx.From(ctx)),
				httpmiddleware.Recovery(),
				httpmiddleware.RequestID(),
				httpmiddleware.LogRequests(),
			),
			"kart-basket",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
