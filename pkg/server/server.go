package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	comparehandler "github.com/de-tools/cloudprice/pkg/handlers/compare"
	"github.com/de-tools/cloudprice/pkg/handlers/health"
	"github.com/de-tools/cloudprice/pkg/handlers/response"
	cloudpricemiddleware "github.com/de-tools/cloudprice/pkg/server/middleware"
	"github.com/de-tools/cloudprice/pkg/services/compare"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/instances"
	"github.com/de-tools/cloudprice/pkg/store/duckdb/refresh"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Compare compare.Service
	Cache   instances.Store
	Refresh refresh.Store
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       cloudpricemiddleware.RateLimitConfig
	Production      bool
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	compareHandler := comparehandler.NewHandler(deps.Compare, config.Production)
	healthHandler := health.NewHandler(deps.Cache, deps.Refresh)

	router := chi.NewRouter()

	router.Use(cloudpricemiddleware.RequestID)
	router.Use(cloudpricemiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)
	router.Use(cloudpricemiddleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", cloudpricemiddleware.RequestIDHeader},
		ExposedHeaders: []string{cloudpricemiddleware.RequestIDHeader, comparehandler.DataSourceHeader, "Retry-After"},
		MaxAge:         300,
	}))

	router.NotFound(response.NotFound)
	router.MethodNotAllowed(response.MethodNotAllowed)

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(cloudpricemiddleware.RateLimit(config.RateLimit))

			r.Get("/compare", compareHandler.Compare)
			r.Post("/compare/best-price", compareHandler.BestPrice)
			r.Post("/compare/side-by-side", compareHandler.SideBySide)
			r.Post("/compare/savings", compareHandler.Savings)
			r.Post("/compare/similar", compareHandler.Similar)
			r.Get("/pricing/{provider}", compareHandler.Pricing)
			r.Get("/providers/{provider}/instances", compareHandler.Instances)
			r.Get("/providers/{provider}/pricing-history", compareHandler.PricingHistory)
			r.Get("/providers/{provider}/regions", compareHandler.Regions)
			r.Get("/providers/{provider}/categories", compareHandler.Categories)
		})
	})

	return router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
