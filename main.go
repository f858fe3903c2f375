package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-bookings/internal/analytics"
	"ms-bookings/internal/analytics/analytics_api"
	"ms-bookings/internal/auth"
	"ms-bookings/internal/booking"
	"ms-bookings/internal/booking/booking_api"
	booking_db "ms-bookings/internal/booking/db"
	"ms-bookings/internal/booking/events"
	rediswrap "ms-bookings/internal/booking/redis"
	"ms-bookings/internal/calsync"
	"ms-bookings/internal/catalog"
	"ms-bookings/internal/catalog/catalog_api"
	catalog_db "ms-bookings/internal/catalog/db"
	"ms-bookings/internal/config"
	"ms-bookings/internal/database/migrations"
	"ms-bookings/internal/kafka"
	"ms-bookings/internal/logger"
)

// subscribeHoldExpiry listens for Redis key expiry events and releases the
// matching pending reservation when its hold key lapses. The sweep endpoint
// covers any event this listener misses.
func subscribeHoldExpiry(rdb *redis.Client, bookingService *booking.BookingService, logger *logger.Logger) {
	ctx := context.Background()

	val, err := rdb.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		logger.Error("REDIS", fmt.Sprintf("Failed to get keyspace config: %v", err))
	} else {
		logger.Info("REDIS", fmt.Sprintf("Current keyspace notifications setting: %v", val))
		if len(val) < 2 || !strings.Contains(val[1].(string), "x") || !strings.Contains(val[1].(string), "E") {
			logger.Warn("REDIS", "Keyspace notifications not properly configured for expiry events!")
		}
	}

	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	logger.Info("REDIS", fmt.Sprintf("Subscribed to Redis keyevent expired notifications (DB %d)", rdb.Options().DB))

	go func() {
		for msg := range pubsub.Channel() {
			if !strings.HasPrefix(msg.Payload, rediswrap.HoldKeyPrefix) {
				continue
			}
			reservationID := strings.TrimPrefix(msg.Payload, rediswrap.HoldKeyPrefix)
			logger.Info("HOLD_EXPIRY", fmt.Sprintf("Hold key expired for reservation: %s", reservationID))

			if err := bookingService.ExpireHold(ctx, reservationID); err != nil {
				logger.Error("HOLD_EXPIRY", fmt.Sprintf("Failed to expire hold %s: %v", reservationID, err))
			}
		}
	}()
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	_, err = redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result()
	if err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		logger.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	migrationRunner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := migrationRunner.MigrateUp(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	logger.Info("DATABASE", "Schema migrations applied")

	var publisher booking.EventPublisher = events.Noop{}
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.RequiredTopics()); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
		publisher = events.NewPublisher(producer)
	} else {
		logger.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	}

	stripeCheckout, err := booking.NewStripeCheckout(cfg.Stripe, cfg.Booking.HoldTTL, logger)
	if err != nil {
		logger.Fatal("STRIPE", fmt.Sprintf("Stripe initialization failed: %v", err))
	}

	bookingService := booking.NewBookingService(
		&booking_db.DB{Bun: bunDB},
		rediswrap.NewRedis(redisClient),
		stripeCheckout,
		publisher,
		cfg.Booking.HoldTTL,
		logger,
	)

	catalogStore := &catalog_db.DB{Bun: bunDB}
	catalogService := catalog.NewService(catalogStore, logger)
	analyticsService := analytics.NewService(bunDB)

	handler := &booking_api.Handler{
		BookingService: bookingService,
		Stripe:         stripeCheckout,
		Logger:         logger,
	}
	catalogHandler := catalog_api.NewHandler(catalogService, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Route("/api/realty", func(r chi.Router) {
		r.Post("/quote", handler.Quote)
		r.Post("/book", handler.Book)
		r.Post("/stripe/webhook", handler.StripeWebhook)
		r.Get("/properties/{slug}/availability", handler.Availability)
	})
	logger.Info("ROUTER", "Public booking endpoints registered under /api/realty")

	// --- Internal Routes ---
	r.Post("/api/internal/expire", handler.ExpireHolds)
	logger.Info("ROUTER", "Expiry sweep endpoint registered at /api/internal/expire")

	// --- Admin Routes ---
	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.OIDCIssuer != "" {
			r.Use(auth.Middleware(cfg.Auth.OIDCIssuer))
			logger.Info("AUTH", "OIDC middleware applied to admin routes")
		} else {
			logger.Warn("AUTH", "OIDC_ISSUER not set, admin routes are unauthenticated")
		}

		catalogHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
	})
	logger.Info("ROUTER", "Admin routes registered under /api/admin")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("REDIS", "Starting hold expiry subscription")
	subscribeHoldExpiry(redisClient, bookingService, logger)

	syncCtx, cancelSync := context.WithCancel(ctx)
	defer cancelSync()
	syncer := calsync.NewSyncer(catalogStore, logger)
	go syncer.Run(syncCtx, cfg.Booking.ICalSyncInterval)
	logger.Info("CALSYNC", fmt.Sprintf("Calendar sync started, interval %s", cfg.Booking.ICalSyncInterval))

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancelSync()
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Booking Service shutdown complete")
	}
}
