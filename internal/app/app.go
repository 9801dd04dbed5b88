package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/content"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/persist"
	"github.com/xenking/storefront/internal/session"
	"github.com/xenking/storefront/internal/storage/file"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront"

// slotBackend is a slot store that can be probed and released.
type slotBackend interface {
	persist.Slots
	health.Pinger
}

// mirrors are the in-memory read models refreshed from PostgreSQL.
type mirrors struct {
	catalog  *product.Catalog
	slides   *content.SlideService
	showcase *content.ShowcaseService
	banners  *content.BannerService
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m httpmiddleware.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("slots", cfg.Slots.Backend),
	)

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slots, closeSlots, err := openSlots(ctx, cfg.Slots, pool)
	if err != nil {
		return errors.Wrap(err, "open slots")
	}
	defer closeSlots()

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	bannerRepo := postgres.NewBannerRepository(pool)

	// Domain services.
	mr := mirrors{
		catalog:  product.NewCatalog(productRepo),
		slides:   content.NewSlideService(postgres.NewSlideRepository(pool)),
		showcase: content.NewShowcaseService(postgres.NewShowcaseRepository(pool)),
		banners:  content.NewBannerService(bannerRepo),
	}
	tracer := m.TracerProvider().Tracer(serviceName)
	if err := mr.refresh(ctx, tracer); err != nil {
		// The server still starts; /readyz reports the catalog until a
		// later refresh succeeds.
		lg.Warn("Initial fetch failed", zap.Error(err))
	}

	sessions, err := session.NewManager(slots, lg.Named("session"), m.MeterProvider().Meter(serviceName), cfg.Session.Idle)
	if err != nil {
		return errors.Wrap(err, "create session manager")
	}

	// Health checks.
	checker := health.NewChecker()
	checker.Add(health.Readiness, "postgres", health.Ping(health.PingFunc(pool.Ping)), health.WithTimeout(5*time.Second))
	checker.Add(health.Readiness, "slots", health.Ping(slots), health.WithTimeout(5*time.Second))
	checker.Add(health.Readiness, "catalog", health.Loaded("catalog", mr.catalog.Loaded))
	checker.Add(health.Liveness, "goroutines", health.Goroutines(10000), health.WithTimeout(time.Second))

	h := handler.New(
		handler.Config{
			ImageBaseURL: cfg.ImageBaseURL,
			Session: httpmiddleware.SessionConfig{
				CookieMaxAge: cfg.Session.CookieMaxAge,
				CookieSecure: cfg.Session.CookieSecure,
			},
		},
		handler.Deps{
			Catalog:    mr.catalog,
			Slides:     mr.slides,
			Showcase:   mr.showcase,
			Banners:    mr.banners,
			AllBanners: content.NewBannerService(bannerRepo),
			Orders:     order.NewService(productRepo, orderRepo),
			Sessions:   sessions,
			Auth:       auth.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper)),
		},
	)

	limiter := httpmiddleware.NewRateLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, httpmiddleware.SessionHeader},
			ExposeHeaders:    []string{httpmiddleware.SessionHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		limiter.Middleware(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName+"-api", m),
		httpmiddleware.RequestID(),
		httpmiddleware.LogRequests(),
	)
	checker.Routes(r)
	h.Routes(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           r,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return checker.Run(gCtx, 10*time.Second)
	})
	g.Go(func() error {
		return sessions.Run(gCtx, cfg.Session.EvictEvery)
	})
	g.Go(func() error {
		return limiter.Run(gCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Refresh)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if err := mr.refresh(gCtx, tracer); err != nil && gCtx.Err() == nil {
					lg.Warn("Refresh failed", zap.Error(err))
				}
			}
		}
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gCtx.Done()
		checker.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		checker.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// openSlots selects the cart and wishlist slot backend.
func openSlots(ctx context.Context, cfg SlotsConfig, pool *pgxpool.Pool) (slotBackend, func(), error) {
	switch cfg.Backend {
	case SlotsRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewSlots(client, cfg.TTL), func() { _ = client.Close() }, nil
	case SlotsFile:
		slots, err := file.NewSlots(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return slots, func() {}, nil
	default:
		return postgres.NewSlots(pool), func() {}, nil
	}
}

// refresh reloads every mirror concurrently inside one span.
func (mr mirrors) refresh(ctx context.Context, tracer trace.Tracer) (rerr error) {
	ctx, span := tracer.Start(ctx, "mirrors.refresh")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	start := time.Now()
	g, gCtx := errgroup.WithContext(ctx)
	fetch := func(name string, f func(context.Context) error) {
		g.Go(func() error {
			if err := f(gCtx); err != nil {
				return errors.Wrap(err, name)
			}
			return nil
		})
	}
	fetch("catalog", mr.catalog.Fetch)
	fetch("slides", mr.slides.Fetch)
	fetch("showcase", mr.showcase.Fetch)
	fetch("banners", mr.banners.FetchActive)
	if err := g.Wait(); err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int("catalog.products", len(mr.catalog.All())),
		attribute.Int("content.slides", len(mr.slides.All())),
	)
	zctx.From(ctx).Debug("Mirrors refreshed", zap.Duration("took", time.Since(start)))
	return nil
}
