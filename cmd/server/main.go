package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andresuchdata/ddmrp/internal/api"
	"github.com/andresuchdata/ddmrp/internal/app"
	"github.com/andresuchdata/ddmrp/internal/cache"
	"github.com/andresuchdata/ddmrp/internal/config"
	"github.com/andresuchdata/ddmrp/internal/repository/memory"
	"github.com/andresuchdata/ddmrp/internal/repository/postgres"
	"github.com/andresuchdata/ddmrp/internal/storage"
	"github.com/andresuchdata/ddmrp/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON(os.Stdout)
	}

	// Initialize storage backend
	var stores app.Stores
	if strings.EqualFold(cfg.Database.Backend, "memory") {
		logger.Log.Warn().Msg("Using in-memory store, data is lost on exit")
		stores = app.MemoryStores(memory.NewStore())
	} else {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		stores = app.PostgresStores(db)
	}

	// Initialize cache
	redisClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize report storage
	objects, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize report storage")
	}

	// Initialize services
	services := app.New(cfg, stores, redisClient, objects)

	// Initialize HTTP server
	router := api.NewRouter(services.APIServices(), cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
