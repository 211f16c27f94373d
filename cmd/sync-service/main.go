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
	"github.com/shelfgrid/platform/pkg/aims"
	"github.com/shelfgrid/platform/pkg/common/config"
	"github.com/shelfgrid/platform/pkg/common/database"
	"github.com/shelfgrid/platform/pkg/common/kafka"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/observability/metrics"
	"github.com/shelfgrid/platform/pkg/store"
	"github.com/shelfgrid/platform/pkg/syncqueue"
)

func main() {
	logger.Init()
	metrics.Init()
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

	aimsClient := aims.NewClient(cfg.AIMSBaseURL, cfg.AIMSUsername, cfg.AIMSPassword, cfg.AIMSRequestTimeout)

	fallbackFormat, err := aims.LoadFormatFile(cfg.AIMSFormatFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load article format file")
	}
	formats := aims.NewFormatCache(aimsClient, database.GetRedis(), cfg.AIMSFormatCacheTTL, fallbackFormat)

	producer := kafka.NewProducer("sync-events")
	defer producer.Close()

	service := syncqueue.NewService(queueRepo, cfg.SyncMaxAttempts)
	processor := syncqueue.NewProcessor(queueRepo, storeRepo, storeRepo, aimsClient, formats, producer, syncqueue.Options{
		ProcessingDelay: cfg.SyncProcessingDelay,
		BatchSize:       cfg.SyncBatchSize,
		BaseRetryDelay:  cfg.SyncBaseRetryDelay,
		MaxRetryDelay:   cfg.SyncMaxRetryDelay,
		MaxAttempts:     cfg.SyncMaxAttempts,
	})
	reconciler := syncqueue.NewReconciler(storeRepo, storeRepo, aimsClient, producer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Run(ctx, cfg.SyncTickInterval)
	go reconciler.Run(ctx, cfg.ReconcileInterval)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	syncqueue.NewHandler(service, processor, reconciler, storeRepo, aimsClient).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8090"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8090",
		}).Info("Sync Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Sync Service...")
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

	logger.Log.Info("Sync Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
