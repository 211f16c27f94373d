package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shelfgrid/platform/pkg/common/config"
	"github.com/shelfgrid/platform/pkg/common/database"
	"github.com/shelfgrid/platform/pkg/common/kafka"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/store"
	"github.com/shelfgrid/platform/pkg/syncqueue"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	storeRepo := store.NewRepository(db)
	if err := storeRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate store tables")
	}
	queueRepo := syncqueue.NewRepository(db)
	if err := queueRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate queue tables")
	}

	queue := syncqueue.NewService(queueRepo, cfg.SyncMaxAttempts)
	tracker := store.NewActivityTracker(database.GetRedis())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer("sync-events", "store-service")
	defer consumer.Close()
	go func() {
		err := consumer.Consume(ctx, func(ctx context.Context, event models.SyncEvent) error {
			return tracker.Record(ctx, event)
		})
		if err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("Sync event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	store.NewHandler(storeRepo, queue).Register(api)
	store.NewActivityHandler(tracker).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Store Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Store Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Postgres")
	}

	logger.Log.Info("Store Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
