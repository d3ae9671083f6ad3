package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/checkout-api/internal/catalog"
	"github.com/xenking/checkout-api/internal/domain/order"
	"github.com/xenking/checkout-api/internal/domain/payment"
	"github.com/xenking/checkout-api/internal/envelope"
	"github.com/xenking/checkout-api/internal/gateway"
	"github.com/xenking/checkout-api/internal/handler"
	"github.com/xenking/checkout-api/internal/lock"
	"github.com/xenking/checkout-api/internal/storage"
	"github.com/xenking/checkout-api/pkg/health"
	"github.com/xenking/checkout-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("store", 5*time.Second, health.PingCheck(store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, healthSvc)
	if err != nil {
		return err
	}
	defer closeLocker()

	if cfg.Catalog.SeedOnStart {
		if err := seed(ctx, lg, store, cfg.Catalog.FeedURL); err != nil {
			return err
		}
	}

	gw, err := gateway.NewClient(gateway.ClientConfig{
		URL:            cfg.Gateway.URL,
		Timeout:        cfg.Gateway.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create gateway client")
	}
	cards, err := payment.PolicyByName(cfg.Gateway.CardPolicy)
	if err != nil {
		return errors.Wrap(err, "card policy")
	}

	orderService := order.NewService(store.Products, store.Orders, gw, cards, locker)
	h := handler.New(handler.Config{InvariantStatus: cfg.InvariantStatus}, store.Products, orderService)

	router := chi.NewRouter()
	healthSvc.Mount(router)
	h.Mount(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Gateway.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(func(w http.ResponseWriter, _ *http.Request) {
				envelope.Write(w, http.StatusInternalServerError, envelope.Entry{
					Context: order.ContextOrder, Code: order.CodeUnknownError, Name: "unexpected error, contact the site administrator",
				})
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("checkout-api", routeFinder, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
				ExposeHeaders:    []string{"Location", "X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				RPS:   cfg.RateLimit.RPS,
				Burst: cfg.RateLimit.Burst,
				OnLimit: func(w http.ResponseWriter, _ *http.Request) {
					envelope.Write(w, http.StatusTooManyRequests, envelope.Entry{
						Context: order.ContextOrder, Code: order.CodeRateLimited, Name: "too many requests",
					})
				},
			}),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		defer healthSvc.Stop()

		// Skip the drain delay when the server itself failed.
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}

// newLocker returns the Redis order lock when configured and the in-process
// one otherwise.
func newLocker(ctx context.Context, cfg RedisConfig, hs *health.Health) (order.Locker, func(), error) {
	if cfg.Addr == "" {
		zctx.From(ctx).Info("Using in-process order lock")
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	l := lock.NewRedis(client, cfg.LockTTL)
	if err := l.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "connect redis")
	}
	hs.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(l))

	zctx.From(ctx).Info("Using redis order lock", zap.String("addr", cfg.Addr))
	return l, func() { _ = client.Close() }, nil
}

func seed(ctx context.Context, lg *zap.Logger, store *storage.Store, source string) error {
	report, err := catalog.NewSeeder(store.Products, nil).Seed(ctx, source, false)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if !report.Ran {
		lg.Info("Catalog already populated, skipping seed")
		return nil
	}
	for _, s := range report.Skipped {
		lg.Warn("Skipped product",
			zap.Int64("product_id", s.ID),
			zap.String("name", s.Name),
			zap.Error(s.Reason),
		)
	}
	lg.Info("Catalog seeded",
		zap.String("source", source),
		zap.Int("upserted", report.Upserted),
		zap.Int("skipped", len(report.Skipped)),
	)
	return nil
}
