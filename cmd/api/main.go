package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fema-catalog/internal/api"
	catalogdb "fema-catalog/internal/catalog/db"
	catalogsvc "fema-catalog/internal/catalog/service"
	"fema-catalog/internal/config"
	"fema-catalog/internal/database"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/observability"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger("api", cfg.Logging.Dir, cfg.Logging.Level)
	defer log.Close()

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

	metrics := observability.NewMetrics()
	store := &catalogdb.DB{Bun: bunDB}
	handler := api.NewHandler(catalogsvc.NewCatalogService(store, metrics, log), store, metrics, log)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         cfg.Server.APIAddr,
		Handler:      api.NewRouter(handler, cfg.API.AllowedOrigins, cfg.API.RateLimit),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Catalog API running on %s", cfg.Server.APIAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	log.Info("HTTP", "✅ Catalog API shutdown complete")
}
