package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/events"
	storehttp "github.com/studio-lm/booooks/internal/http"
	"github.com/studio-lm/booooks/internal/page"
	"github.com/studio-lm/booooks/internal/shipping"
	"github.com/studio-lm/booooks/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Configuration
	httpPort := getEnv("HTTP_PORT", "8080")
	catalogDB := getEnv("CATALOG_DB", "storefront.db")
	migrationsPath := getEnv("MIGRATIONS_PATH", "internal/catalog/migrations")
	snapshotBackend := getEnv("SNAPSHOT_BACKEND", "redis")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")

	ctx := context.Background()

	// Catalog
	cat, err := catalog.NewSQLite(catalogDB)
	if err != nil {
		log.Fatal("failed to open catalog", zap.Error(err))
	}
	defer cat.Close()
	if err := cat.RunMigrations(migrationsPath); err != nil {
		log.Fatal("failed to migrate catalog", zap.Error(err))
	}
	log.Info("catalog ready", zap.String("db", catalogDB))

	// Snapshot storage
	var store snapshot.Store
	switch snapshotBackend {
	case "mongo":
		db, err := snapshot.ConnectMongo(ctx, getEnv("MONGO_URI", "mongodb://localhost:27017"), getEnv("MONGO_DB_NAME", "storefront"))
		if err != nil {
			log.Fatal("failed to connect to mongo", zap.Error(err))
		}
		defer db.Client().Disconnect(ctx)

		mongoStore := snapshot.NewMongoStore(db)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.Fatal("failed to create mongo indexes", zap.Error(err))
		}
		store = mongoStore
		log.Info("snapshot storage ready", zap.String("backend", "mongo"))
	default:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		store = snapshot.NewRedisStore(redisClient)
		log.Info("snapshot storage ready", zap.String("backend", "redis"))
	}

	// Order events
	var publisher events.Publisher = events.NopPublisher{}
	if kafkaBrokers != "" {
		kafkaPublisher := events.NewKafkaPublisher(strings.Split(kafkaBrokers, ",")...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("order events ready", zap.String("brokers", kafkaBrokers))
	}

	options := []shipping.Option{
		{Label: "Standard", Fee: decimal.RequireFromString("3.50")},
		{Label: "Express", Fee: decimal.RequireFromString("6.90")},
		{Label: "Pickup", Fee: decimal.Zero},
	}

	sessions := page.NewManager(page.Deps{
		Catalog:   cat,
		Snapshots: snapshot.NewService(store, log),
		Publisher: publisher,
		Options:   options,
		Log:       log,
	})
	defer sessions.Close()

	handler := storehttp.NewHandler(sessions, cat, options, storehttp.CheckoutForm{
		Action:   getEnv("CHECKOUT_ACTION", "https://www.paypal.com/cgi-bin/webscr"),
		Business: getEnv("CHECKOUT_BUSINESS", "shop@toolsbooks.example"),
		Currency: getEnv("CHECKOUT_CURRENCY", "EUR"),
	}, log)

	server := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      otelhttp.NewHandler(handler.Routes(), "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("storefront listening", zap.String("port", httpPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	log.Info("storefront stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
