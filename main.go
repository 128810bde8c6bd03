package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-booking/internal/analytics"
	analytics_api "ms-booking/internal/analytics/api"
	"ms-booking/internal/auth"
	catalogdb "ms-booking/internal/catalog/db"
	"ms-booking/internal/catalog/catalog_api"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/health"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/middleware"
	"ms-booking/internal/models"
	"ms-booking/internal/order"
	orderdb "ms-booking/internal/order/db"
	"ms-booking/internal/order/discount"
	orderkafka "ms-booking/internal/order/kafka"
	"ms-booking/internal/order/order_api"
	rediswrap "ms-booking/internal/order/redis"
	"ms-booking/internal/payment/momo"
	"ms-booking/internal/user"
	"ms-booking/internal/user/user_api"
	"ms-booking/internal/voucher"
)

func runMigrations(bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) {
	if !cfg.AutoMigrate {
		log.Info("MIGRATION", "Auto-migration disabled, skipping")
		return
	}

	runner := migrations.NewRunner(bunDB.DB, migrations.MigrateOptions{
		AutoMigrate: cfg.AutoMigrate,
		SeedData:    cfg.SeedData,
	}, log)
	if err := runner.Initialize(); err != nil {
		log.Fatal("MIGRATION", fmt.Sprintf("Failed to initialize migrations: %v", err))
	}
	defer runner.Close()

	if err := runner.RunMigrations(); err != nil {
		log.Fatal("MIGRATION", fmt.Sprintf("Failed to run migrations: %v", err))
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// the order lock degrades to the database guard, so keep going
		log.Warn("REDIS", fmt.Sprintf("Redis not reachable at %s: %v", cfg.Addr, err))
		return client
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

// eventPublisher returns the Kafka-backed order event publisher, or a no-op
// one when Kafka is disabled.
func eventPublisher(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) (order.EventPublisher, func()) {
	if !cfg.Enabled {
		log.Info("KAFKA", "Kafka disabled, order events will not be published")
		return orderkafka.Noop{}, func() {}
	}

	topics := []string{cfg.Topics.OrderCreated, cfg.Topics.OrderStatusChanged}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}

	producer := kafka.NewProducer(cfg.Brokers, log)
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Brokers))
	return orderkafka.NewOrderEvents(producer, cfg.Topics, log), func() {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func tokenVerifier(ctx context.Context, cfg config.AuthConfig, jwtManager *auth.JWTManager, users *user.DB, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer == "" {
		log.Info("AUTH", "Using local HS256 tokens")
		return jwtManager
	}
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, users)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to set up OIDC verifier for %s: %v", cfg.OIDCIssuer, err))
	}
	log.Info("AUTH", fmt.Sprintf("Using OIDC tokens from %s", cfg.OIDCIssuer))
	return verifier
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: logger.ParseLevel(cfg.Log.Level)})
	if err != nil {
		log = logger.NewLogger()
	}
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx := context.Background()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	runMigrations(bunDB, cfg.Database, log)

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	events, closeEvents := eventPublisher(ctx, cfg.Kafka, log)
	defer closeEvents()

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("JWT_SECRET: %v", err))
	}
	vouchers, err := voucher.NewGenerator(cfg.Voucher.Secret)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("VOUCHER_SECRET: %v", err))
	}

	catalogStore := &catalogdb.DB{Bun: bunDB}
	userStore := &user.DB{Bun: bunDB}
	orderLock := rediswrap.NewOrderLock(redisClient, cfg.Redis.OrderLockTTL, log)
	momoClient := momo.NewClient(cfg.Momo, log)

	discountService := discount.NewDiscountService(&discount.DB{Bun: bunDB}, catalogStore, log)
	userService := user.NewService(userStore, jwtManager, log)
	orderService := order.NewOrderService(order.Deps{
		DB:        &orderdb.DB{Bun: bunDB},
		Catalog:   catalogStore,
		Discounts: discountService,
		Payments:  momoClient,
		Lock:      orderLock,
		Events:    events,
		Users:     userStore,
		Vouchers:  vouchers,
		Config:    cfg.Order,
		Logger:    log,
	})

	orderHandler := &order_api.Handler{
		Orders:                  orderService,
		Discounts:               discountService,
		Momo:                    momoClient,
		ConfirmationURL:         cfg.Momo.ConfirmationURL,
		VerifyCallbackSignature: cfg.Momo.VerifyCallbackSignature,
		BusyRetryDelay:          cfg.Momo.CallbackBusyRetry,
		Logger:                  log,
	}
	analyticsHandler := &analytics_api.Handler{
		Service: analytics.NewService(&analytics.DB{Bun: bunDB}),
		Logger:  log,
	}
	catalogHandler := &catalog_api.Handler{Catalog: catalogStore, Logger: log}
	userHandler := &user_api.Handler{Users: userService, Logger: log}
	healthHandler := &health.Handler{
		Checks: []health.Check{
			{Name: "database", Ping: bunDB.PingContext},
			{Name: "redis", Ping: orderLock.Ping},
		},
		Logger: log,
	}

	limiter := middleware.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	stopCleanup := make(chan struct{})
	go limiter.RunCleanup(time.Minute, stopCleanup)

	requireAuth := auth.Middleware(tokenVerifier(ctx, cfg.Auth, jwtManager, userStore, log), log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))

	// --- Public Routes ---
	r.Get("/health", healthHandler.ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/services/{serviceId}", catalogHandler.GetService)
		r.Get("/discounts/satisfied", orderHandler.SatisfiedDiscounts)

		r.Post("/auth/register", userHandler.Register)
		r.With(limiter.Middleware).Post("/auth/login", userHandler.Login)

		r.Get("/momo/callback", orderHandler.MomoCallback)
		r.Post("/momo/ipn", orderHandler.MomoIPN)
		log.Info("ROUTER", "Public routes registered")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", userHandler.Me)

			r.Route("/orders", func(r chi.Router) {
				r.With(auth.RequireRole(log, models.RoleUser), limiter.Middleware).Post("/", orderHandler.CreateOrder)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/{orderId}", orderHandler.GetOrder)
				r.Post("/{orderId}/payment", orderHandler.RetryPayment)
				r.Get("/{orderId}/payment-status", orderHandler.PaymentStatus)
				r.Get("/{orderId}/voucher", orderHandler.Voucher)
			})
			log.Info("ROUTER", "Order routes registered under /api/orders")

			r.With(auth.RequireRole(log, models.RoleAdmin, models.RoleProvider)).
				Post("/vouchers/verify", orderHandler.VerifyVoucher)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(log, models.RoleAdmin))
				r.Put("/orders/{orderId}/status", orderHandler.UpdateOrderStatus)
				r.Get("/discounts", orderHandler.ListDiscounts)
				r.Post("/discounts", orderHandler.CreateDiscount)
				r.Get("/discounts/{discountId}", orderHandler.GetDiscount)
				r.Put("/discounts/{discountId}", orderHandler.UpdateDiscount)
				r.Delete("/discounts/{discountId}", orderHandler.DeleteDiscount)
				analyticsHandler.RegisterRoutes(r)
			})
			log.Info("ROUTER", "Admin routes registered under /api/admin")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	close(stopCleanup)
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
