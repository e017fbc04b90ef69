package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aditya/ridequote/internal/cache"
	"github.com/aditya/ridequote/internal/config"
	"github.com/aditya/ridequote/internal/database"
	"github.com/aditya/ridequote/internal/geocode"
	"github.com/aditya/ridequote/internal/handler"
	"github.com/aditya/ridequote/internal/ingest"
	"github.com/aditya/ridequote/internal/logging"
	"github.com/aditya/ridequote/internal/middleware"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/repository"
	"github.com/aditya/ridequote/internal/service"
	"github.com/aditya/ridequote/pkg/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("new relic disabled", "error", err)
		} else {
			nrApp = app
			if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
				logger.Warn("new relic connection timeout", "error", err)
			}
			defer nrApp.Shutdown(5 * time.Second)
		}
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("connected to postgres")

	// Redis backs the geo index, the estimate cache, cross-instance fan-out
	// and the HTTP guards. Without it the service runs single-node.
	var rdb *database.RedisDB
	if cfg.RedisURL != "" {
		rdb, err = database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Warn("redis unavailable, running without cache and fan-out", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Info("connected to redis")
		}
	}

	hub := realtime.NewHub(logger)
	var events realtime.Publisher = hub
	var (
		driverCache   cache.DriverLocationCache
		estimateCache cache.EstimateCache
	)
	if rdb != nil {
		broker := realtime.NewRedisBroker(rdb.Client, hub, logger)
		go func() {
			if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event broker stopped", "error", err)
			}
		}()
		events = broker
		driverCache = cache.NewDriverLocationCache(rdb.Client)
		estimateCache = cache.NewEstimateCache(rdb.Client, cfg.EstimateCacheTTL)
	}

	var stream ingest.LocationPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaLocationTopic)
		defer producer.Close()
		stream = producer
		logger.Info("streaming locations to kafka", "topic", cfg.KafkaLocationTopic)
	}

	var geocoder geocode.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		g, err := geocode.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if err != nil {
			logger.Warn("geocoder disabled", "error", err)
		} else {
			geocoder = g
		}
	}

	// Repositories
	partnerRepo := repository.NewPartnerRepository(db.DB)
	vehicleRepo := repository.NewVehicleRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	rideRepo := repository.NewRideRepository(db.DB)
	quoteRepo := repository.NewQuoteRepository(db.DB)
	locationRepo := repository.NewLocationRepository(db.DB)

	// Services
	drivers := service.NewDriverService(service.DriverServiceDeps{
		DB:           db.DB,
		DriverRepo:   driverRepo,
		RideRepo:     rideRepo,
		VehicleRepo:  vehicleRepo,
		LocationRepo: locationRepo,
		DriverCache:  driverCache,
		Stream:       stream,
		Events:       events,
		Logger:       logger,
	})
	dispatch := service.NewDispatchService(service.DispatchConfig{
		SearchRadiusKM:     cfg.SearchRadiusKM,
		MaxQuotes:          cfg.MaxQuotesPerRequest,
		QuoteTTL:           cfg.QuoteTTL,
		QuoteSweepInterval: cfg.QuoteSweepInterval,
	}, service.DispatchServiceDeps{
		DB:            db.DB,
		RideRepo:      rideRepo,
		QuoteRepo:     quoteRepo,
		PartnerRepo:   partnerRepo,
		DriverRepo:    driverRepo,
		Drivers:       drivers,
		Pricing:       service.NewPricingService(),
		EstimateCache: estimateCache,
		DriverCache:   driverCache,
		Geocoder:      geocoder,
		Events:        events,
		Logger:        logger,
	})
	partners := service.NewPartnerService(partnerRepo)

	if driverCache != nil {
		if n, err := drivers.WarmCache(ctx); err != nil {
			logger.Warn("failed to warm driver cache", "error", err)
		} else {
			logger.Info("driver cache warmed", "drivers", n)
		}
	}
	go dispatch.RunQuoteExpiry(ctx)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRelic(nrApp))
	if rdb != nil {
		r.Use(middleware.NewRateLimiter(rdb.Client, 100, time.Minute, logger).Handler)
		r.Use(middleware.NewIdempotencyMiddleware(rdb.Client, logger).Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{"database": "up", "redis": "disabled"}
		status := http.StatusOK
		if err := db.Health(r.Context()); err != nil {
			services["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			services["redis"] = "up"
			if err := rdb.Health(r.Context()); err != nil {
				services["redis"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		utils.JSON(w, status, map[string]interface{}{
			"status":      state,
			"services":    services,
			"connections": hub.Len(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	handler.NewRideHandler(dispatch, logger).RegisterRoutes(r)
	handler.NewDriverHandler(drivers, cfg.SearchRadiusKM, logger).RegisterRoutes(r)
	handler.NewPartnerHandler(partners, logger).RegisterRoutes(r)
	handler.NewWSHandler(hub, drivers, dispatch, logger).RegisterRoutes(r)
	handler.NewSSEHandler(hub, dispatch, driverCache, logger).RegisterRoutes(r)
	if geocoder != nil {
		handler.NewGeocodeHandler(geocoder, logger).RegisterRoutes(r)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(hub.CloseAll)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
