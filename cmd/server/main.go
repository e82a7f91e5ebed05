package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aditya/rideshare/internal/cache"
	"github.com/aditya/rideshare/internal/config"
	"github.com/aditya/rideshare/internal/database"
	"github.com/aditya/rideshare/internal/handler"
	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).WithError(err).Fatal("failed to load config")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log = log.WithField("env", cfg.Env)

	// Fares and balances go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
			newrelic.ConfigInfoLogger(log.Writer()),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			log.WithError(err).Warn("New Relic connection timeout")
		} else {
			log.Info("New Relic connected")
		}
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("failed to apply schema")
		}
		log.Info("schema applied")
	}

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redis.Close()
	log.Info("connected to Redis")

	hub := realtime.NewHub(0)
	var broker realtime.Broker = hub
	if cfg.RealtimeBackend == "redis" {
		redisBroker := realtime.NewRedisBroker(redis.Client, hub, log)
		go func() {
			if err := redisBroker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("realtime relay stopped")
			}
		}()
		broker = redisBroker
	}
	log.WithField("backend", cfg.RealtimeBackend).Info("realtime broker ready")

	driverCache := cache.NewDriverLocationCache(redis.Client)

	userRepo := repository.NewUserRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	rideRepo := repository.NewRideRepository(db.DB)
	requestRepo := repository.NewRideRequestRepository(db.DB)
	locationRepo := repository.NewRideLocationRepository(db.DB)
	paymentRepo := repository.NewPaymentRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	walletRepo := repository.NewWalletRepository(db.DB)
	promoRepo := repository.NewPromoRepository(db.DB)
	chatRepo := repository.NewChatRepository(db.DB)

	notifier := service.NewNotifier(notificationRepo, broker, log)
	pricingService := service.NewPricingService(rideRepo, cfg.Location(), cfg.Currency)
	matchingService := service.NewMatchingService(driverRepo, pricingService, cfg.DefaultSearchRadiusKM)
	rideService := service.NewRideService(rideRepo, requestRepo, locationRepo, pricingService, matchingService, notifier, cfg.RideRequestTTL, log)
	driverService := service.NewDriverService(driverRepo, userRepo, rideRepo, locationRepo, driverCache, broker, log)
	userService := service.NewUserService(userRepo)
	paymentService := service.NewPaymentService(paymentRepo, rideRepo, notifier, cfg.Currency, log)
	walletService := service.NewWalletService(userRepo, walletRepo, cfg.Currency, log)
	promoService := service.NewPromoService(promoRepo, cfg.Currency)
	chatService := service.NewChatService(rideRepo, chatRepo, broker, log)

	expiry := service.NewExpiryWorker(requestRepo, cfg.ExpirySweepInterval, log)
	go func() {
		if err := expiry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("expiry worker stopped")
		}
	}()

	router := handler.NewRouter(handler.RouterConfig{
		Log:         log,
		Auth:        middleware.NewAuthenticator(cfg.JWTSecret),
		RateLimiter: middleware.NewRateLimiter(redis.Client, cfg.RateLimitPerMinute, time.Minute, log),
		Idempotency: middleware.NewIdempotencyMiddleware(redis.Client, log),
		NewRelic:    nrApp,
		HealthChecks: map[string]handler.HealthCheck{
			"database": db.Health,
			"redis":    redis.Health,
		},
		Users:         handler.NewUserHandler(userService, log),
		Rides:         handler.NewRideHandler(rideService, pricingService, matchingService, log),
		Drivers:       handler.NewDriverHandler(driverService, log),
		Payments:      handler.NewPaymentHandler(paymentService, log),
		Notifications: handler.NewNotificationHandler(notifier, log),
		Chat:          handler.NewChatHandler(chatService, log),
		Wallet:        handler.NewWalletHandler(walletService, log),
		Promos:        handler.NewPromoHandler(promoService, log),
		SSE:           handler.NewSSEHandler(broker, rideService, driverCache, log),
		WS:            handler.NewWSHandler(broker, rideService, driverService, chatService, log),
	})

	// No write timeout: SSE and WebSocket responses stay open.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown error")
		}
		if nrApp != nil {
			nrApp.Shutdown(5 * time.Second)
		}
	}()

	log.WithField("port", cfg.Port).Info("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server error")
	}

	log.Info("server stopped")
}
