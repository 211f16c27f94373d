package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"gorm.io/datatypes"
)

// ServiceStore is the queue persistence slice the producer side needs.
type ServiceStore interface {
	Enqueue(ctx context.Context, item *QueueItemModel) error
	ResetForRetry(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*QueueItemModel, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status string, limit int) ([]QueueItemModel, error)
}

// Service enqueues sync work when local entities mutate. It does no
// coalescing: rapid repeated edits each get their own item, collapsed only
// by the processor's debounce window.
type Service struct {
	store       ServiceStore
	maxAttempts int
	now         func() time.Time
}

func NewService(store ServiceStore, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{store: store, maxAttempts: maxAttempts, now: time.Now}
}

func (s *Service) enqueue(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, action string, payload models.ChangePayload) (*QueueItemModel, error) {
	payload.Version = PayloadVersion
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := s.now().UTC()
	item := &QueueItemModel{
		ID:          uuid.New(),
		StoreID:     storeID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Payload:     datatypes.JSON(raw),
		Status:      StatusPending,
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Enqueue(ctx, item); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id":     item.ID,
		"store_id":    storeID,
		"entity_type": entityType,
		"action":      action,
	}).Debug("Queued sync item")
	return item, nil
}

func (s *Service) QueueCreate(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error {
	_, err := s.enqueue(ctx, storeID, entityType, entityID, ActionCreate, payload)
	return err
}

func (s *Service) QueueUpdate(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error {
	_, err := s.enqueue(ctx, storeID, entityType, entityID, ActionUpdate, payload)
	return err
}

// QueueDelete captures the external key in the payload so the delete can
// still resolve after the local row is purged.
func (s *Service) QueueDelete(ctx context.Context, storeID uuid.UUID, entityType string, entityID uuid.UUID, payload models.ChangePayload) error {
	_, err := s.enqueue(ctx, storeID, entityType, entityID, ActionDelete, payload)
	return err
}

// QueueFullSync inserts the legacy full-sync marker. The per-item loop
// treats it as a no-op; full syncs run through the reconciler.
func (s *Service) QueueFullSync(ctx context.Context, storeID uuid.UUID) error {
	_, err := s.enqueue(ctx, storeID, "", uuid.Nil, ActionSyncFull, models.ChangePayload{})
	return err
}

// RetryItem resets a terminal FAILED item to PENDING.
func (s *Service) RetryItem(ctx context.Context, id uuid.UUID) error {
	return s.store.ResetForRetry(ctx, id)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*QueueItemModel, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, storeID uuid.UUID, status string, limit int) ([]QueueItemModel, error) {
	return s.store.ListByStore(ctx, storeID, status, limit)
}
