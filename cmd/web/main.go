package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	accountsdb "fema-catalog/internal/accounts/db"
	accounts "fema-catalog/internal/accounts/service"
	catalogdb "fema-catalog/internal/catalog/db"
	catalogsvc "fema-catalog/internal/catalog/service"
	"fema-catalog/internal/config"
	"fema-catalog/internal/database"
	"fema-catalog/internal/kafka"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/observability"
	"fema-catalog/internal/session"
	"fema-catalog/internal/share"
	"fema-catalog/internal/web"
)

func newSessionStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (session.Store, func()) {
	if cfg.Session.Store != "redis" {
		log.Info("SESSION", "Using signed cookie sessions")
		return session.NewTokenStore(cfg.Session.Secret, cfg.Session.TTL), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis session store connected to %s", cfg.Redis.Addr))
	return session.NewRedisStore(client, cfg.Session.TTL), func() { client.Close() }
}

func newPublisher(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) kafka.Publisher {
	if !cfg.Enabled {
		log.Info("KAFKA", "Activity publishing disabled")
		return kafka.NopPublisher{}
	}

	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, []string{cfg.Topic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Publishing user activity to %s via %v", cfg.Topic, cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, cfg.Topic, log)
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger("web", cfg.Logging.Dir, cfg.Logging.Level)
	defer log.Close()
	log.Info("APP", "Starting disaster catalog web app")

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Prepare(ctx, bunDB, log); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
		}
	}

	store, closeStore := newSessionStore(ctx, cfg, log)
	defer closeStore()

	publisher := newPublisher(ctx, cfg.Kafka, log)
	defer publisher.Close()

	metrics := observability.NewMetrics()
	catalogStore := &catalogdb.DB{Bun: bunDB}

	views, err := web.NewRenderer()
	if err != nil {
		log.Fatal("RENDER", err.Error())
	}

	handler := &web.Handler{
		Catalog:  catalogsvc.NewCatalogService(catalogStore, metrics, log),
		Accounts: accounts.NewAccountService(&accountsdb.DB{Bun: bunDB}, catalogStore, publisher, metrics, log),
		Sessions: session.NewManager(store, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure, log),
		QR:       share.NewQRGenerator(cfg.Share.BaseURL, cfg.Share.QRSize),
		Views:    views,
		Store:    catalogStore,
		Metrics:  metrics,
		Logger:   log,
		Config:   cfg,
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Disaster catalog running on %s", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Disaster catalog shutdown complete")
	}
}
