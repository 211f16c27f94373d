package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/store"
)

// HealthChecker is the gateway slice the inspection API exposes.
type HealthChecker interface {
	CheckHealth(ctx context.Context, storeCode string) (bool, error)
	GetStoreConfig(ctx context.Context, storeCode string) (*models.StoreConfig, error)
}

type Handler struct {
	service    *Service
	processor  *Processor
	reconciler *Reconciler
	stores     StoreDirectory
	gateway    HealthChecker
}

func NewHandler(service *Service, processor *Processor, reconciler *Reconciler, stores StoreDirectory, gateway HealthChecker) *Handler {
	return &Handler{
		service:    service,
		processor:  processor,
		reconciler: reconciler,
		stores:     stores,
		gateway:    gateway,
	}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/stores/{id}/queue", h.handleListQueue).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}/sync", h.handleQueueFullSync).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}/reconcile", h.handleReconcileStore).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}/aims-health", h.handleStoreHealth).Methods(http.MethodGet)
	r.HandleFunc("/queue/{id}", h.handleGetItem).Methods(http.MethodGet)
	r.HandleFunc("/queue/{id}/retry", h.handleRetryItem).Methods(http.MethodPost)
}

func (h *Handler) handleListQueue(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	items, err := h.service.ListItems(r.Context(), storeID, r.URL.Query().Get("status"), parseLimit(r, 100))
	if err != nil {
		logger.Log.WithError(err).Error("failed to list queue items")
		http.Error(w, "failed to list queue items", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if errors.Is(err, ErrItemNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to get queue item")
		http.Error(w, "failed to get queue item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// handleRetryItem resets a FAILED item and runs it immediately instead of
// waiting for the next tick.
func (h *Handler) handleRetryItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	if err := h.service.RetryItem(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrItemNotFound):
			http.Error(w, "item not found", http.StatusNotFound)
		case errors.Is(err, ErrItemNotFailed):
			http.Error(w, "item is not in FAILED state", http.StatusConflict)
		default:
			logger.Log.WithError(err).Error("failed to reset queue item")
			http.Error(w, "failed to reset queue item", http.StatusInternalServerError)
		}
		return
	}

	if err := h.processor.ProcessItem(r.Context(), id); err != nil {
		// The item is back in the queue with retry bookkeeping applied;
		// report the failure but nothing is lost.
		writeJSON(w, http.StatusOK, map[string]interface{}{"item_id": id, "status": "retry_failed", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"item_id": id, "status": "completed"})
}

func (h *Handler) handleQueueFullSync(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	if err := h.service.QueueFullSync(r.Context(), storeID); err != nil {
		logger.Log.WithError(err).Error("failed to queue full sync")
		http.Error(w, "failed to queue full sync", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleReconcileStore(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	st, err := h.stores.GetStore(r.Context(), storeID)
	if errors.Is(err, store.ErrStoreNotFound) {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to load store")
		http.Error(w, "failed to load store", http.StatusInternalServerError)
		return
	}
	result, err := h.reconciler.ReconcileStore(r.Context(), st)
	if err != nil {
		logger.Log.WithError(err).Error("reconciliation failed")
		http.Error(w, "reconciliation failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": result})
}

func (h *Handler) handleStoreHealth(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	st, err := h.stores.GetStore(r.Context(), storeID)
	if errors.Is(err, store.ErrStoreNotFound) {
		http.Error(w, "store not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to load store")
		http.Error(w, "failed to load store", http.StatusInternalServerError)
		return
	}

	cfg, err := h.gateway.GetStoreConfig(r.Context(), st.AimsStoreCode)
	if err != nil {
		http.Error(w, "aims unreachable", http.StatusBadGateway)
		return
	}
	healthy := false
	if cfg != nil {
		healthy, err = h.gateway.CheckHealth(r.Context(), st.AimsStoreCode)
		if err != nil {
			http.Error(w, "aims unreachable", http.StatusBadGateway)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"store_id":   storeID,
		"configured": cfg != nil,
		"healthy":    healthy,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
