package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/render"
	"github.com/xenking/storefront/internal/storefront"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, replays the persisted cart, starts the HTTP
// server, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("catalog", cfg.Catalog.SearchURL),
	)
	ctx = zctx.Base(ctx, lg)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return errors.Wrap(err, "open cart store")
	}
	defer store.close()

	// Catalog client: instrumented transport, one timeout per request.
	httpClient := catalog.NewHTTPClient(cfg.Catalog.Timeout, m.TracerProvider(), m.MeterProvider())
	catalogClient := catalog.NewClient(catalog.ClientConfig{
		SearchURL: cfg.Catalog.SearchURL,
		ItemsURL:  cfg.Catalog.ItemsURL,
	}, httpClient)

	// Cart controller and storefront share one loading indicator.
	loading := render.NewIndicator()
	controller := cart.NewController(cart.ControllerConfig{
		Progress:           loading,
		MeterProvider:      m.MeterProvider(),
		RestoreConcurrency: cfg.Catalog.RestoreConcurrency,
	}, catalogClient, store)
	sf := storefront.New(storefront.Config{
		Title: cfg.Title,
		Query: cfg.Catalog.Query,
	}, catalogClient, controller, loading)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("catalog", cfg.Catalog.Timeout, health.HTTPCheck(httpClient, cfg.Catalog.SearchURL))
	if store.check != nil {
		healthSvc.AddReadinessCheck("store", 5*time.Second, store.check)
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	defer healthSvc.Stop()

	// The persisted cart is replayed before the first request is served.
	if err := sf.Bootstrap(ctx); err != nil {
		return errors.Wrap(err, "bootstrap storefront")
	}
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(sf).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Adds wait on the catalog, so leave room for one full catalog timeout.
		WriteTimeout:   cfg.Catalog.Timeout + 5*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(mux,
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(lg),
				httpmiddleware.Recovery(),
				httpmiddleware.LogRequests("/livez", "/readyz"),
				httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
					Max:     cfg.RateLimit.Max,
					Window:  cfg.RateLimit.Window,
					Methods: []string{http.MethodPost},
				}),
			),
			"storefront",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

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
