package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
)

const activityKeep = 100

// ActivityTracker keeps the most recent sync events per store in Redis, fed
// by the sync-events topic. It is a convenience view; the queue table stays
// the source of truth.
type ActivityTracker struct {
	client *redis.Client
}

func NewActivityTracker(client *redis.Client) *ActivityTracker {
	return &ActivityTracker{client: client}
}

func activityKey(storeID string) string {
	return fmt.Sprintf("store:activity:%s", storeID)
}

func (t *ActivityTracker) Record(ctx context.Context, event models.SyncEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := activityKey(event.StoreID)
	if err := t.client.LPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return t.client.LTrim(ctx, key, 0, activityKeep-1).Err()
}

func (t *ActivityTracker) Recent(ctx context.Context, storeID uuid.UUID, limit int64) ([]models.SyncEvent, error) {
	if limit <= 0 || limit > activityKeep {
		limit = activityKeep
	}
	raw, err := t.client.LRange(ctx, activityKey(storeID.String()), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]models.SyncEvent, 0, len(raw))
	for _, item := range raw {
		var event models.SyncEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			logger.Log.WithError(err).Warn("Skipping malformed activity entry")
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

type ActivityHandler struct {
	tracker *ActivityTracker
}

func NewActivityHandler(tracker *ActivityTracker) *ActivityHandler {
	return &ActivityHandler{tracker: tracker}
}

func (h *ActivityHandler) Register(r *mux.Router) {
	r.HandleFunc("/stores/{id}/activity", h.handleRecentActivity).Methods(http.MethodGet)
}

func (h *ActivityHandler) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}
	events, err := h.tracker.Recent(r.Context(), storeID, 50)
	if err != nil {
		logger.Log.WithError(err).Error("failed to read store activity")
		http.Error(w, "failed to read store activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
