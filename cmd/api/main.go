package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/story-grid/internal/config"
	"github.com/jwebster45206/story-grid/internal/events"
	"github.com/jwebster45206/story-grid/internal/handlers"
	"github.com/jwebster45206/story-grid/internal/logger"
	"github.com/jwebster45206/story-grid/internal/middleware"
	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/script"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Story Grid API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"redis", cfg.RedisURL != "")

	resolver := script.NewDefaultResolver(nil)
	scripts, err := storage.LoadScripts(cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to load scripts", "error", err)
		os.Exit(1)
	}
	for _, s := range scripts {
		resolver.Add(s)
	}
	log.Info("Scripts loaded", "keys", resolver.Keys())

	var (
		drafts    storage.DraftStore
		publisher events.Publisher
		redisDB   *storage.RedisStorage
	)
	if cfg.RedisURL != "" {
		redisDB, err = storage.NewRedisStorage(cfg.RedisURL, cfg.DraftTTL, log)
		if err != nil {
			logger.WithError(log, err).Error("Invalid Redis configuration")
			os.Exit(1)
		}
		storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer storageCancel()
		if err := redisDB.WaitForConnection(storageCtx, 10, 2*time.Second); err != nil {
			logger.WithError(log, err).Error("Failed to connect to storage")
			os.Exit(1)
		}
		drafts = redisDB
		publisher = events.NewBroadcaster(redisDB.Client(), log)
	} else {
		drafts = storage.NewFileStore(cfg.DataDir, log)
		log.Info("REDIS_URL not set, keeping drafts on disk; live events disabled")
	}
	log.Info("Storage connection established successfully")

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(drafts, log)
	mux.Handle("/health", healthHandler)

	scriptsHandler := handlers.NewScriptsHandler(resolver, log)
	mux.Handle("/v1/scripts", scriptsHandler)
	mux.Handle("/v1/scripts/", scriptsHandler)

	draftsHandler := handlers.NewDraftsHandler(drafts, publisher, resolver, log)
	mux.Handle("/v1/drafts", draftsHandler)
	mux.Handle("/v1/drafts/", draftsHandler)

	if redisDB != nil {
		mux.Handle("/v1/events/drafts/", handlers.NewEventsHandler(redisDB.Client(), log))
	}

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := drafts.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
