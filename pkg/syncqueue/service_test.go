package syncqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/common/models"
)

func TestQueueDeleteSnapshotsExternalKey(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(queue, 5)
	storeID := uuid.New()
	entityID := uuid.New()

	err := svc.QueueDelete(context.Background(), storeID, models.EntityTypeSpace, entityID, models.ChangePayload{ExternalID: "A100"})
	if err != nil {
		t.Fatalf("queue delete failed: %v", err)
	}

	items, err := svc.ListItems(context.Background(), storeID, StatusPending, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	item := items[0]
	if item.Action != ActionDelete || item.Attempts != 0 || item.MaxAttempts != 5 {
		t.Fatalf("unexpected item: %+v", item)
	}
	payload, err := item.DecodePayload()
	if err != nil {
		t.Fatal(err)
	}
	if payload.ExternalID != "A100" || payload.Version != PayloadVersion {
		t.Fatalf("payload must carry the snapshotted key: %+v", payload)
	}
}

func TestRetryItemOnlyResetsFailedItems(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(queue, 5)
	ctx := context.Background()
	storeID := uuid.New()

	if err := svc.QueueCreate(ctx, storeID, models.EntityTypeSpace, uuid.New(), models.ChangePayload{}); err != nil {
		t.Fatal(err)
	}
	items, _ := svc.ListItems(ctx, storeID, "", 10)
	itemID := items[0].ID

	if err := svc.RetryItem(ctx, itemID); !errors.Is(err, ErrItemNotFailed) {
		t.Fatalf("PENDING item must not be resettable, got %v", err)
	}

	queue.mu.Lock()
	queue.items[itemID].Status = StatusFailed
	queue.items[itemID].Attempts = 5
	queue.mu.Unlock()

	if err := svc.RetryItem(ctx, itemID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	item := queue.get(itemID)
	if item.Status != StatusPending || item.Attempts != 0 || item.ProcessedAt != nil {
		t.Fatalf("retry must reset the item: %+v", item)
	}

	if err := svc.RetryItem(ctx, uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("unknown item should report not found, got %v", err)
	}
}

func TestQueueFullSyncInsertsMarker(t *testing.T) {
	queue := newFakeQueue()
	svc := NewService(queue, 5)
	storeID := uuid.New()

	if err := svc.QueueFullSync(context.Background(), storeID); err != nil {
		t.Fatal(err)
	}
	items, _ := svc.ListItems(context.Background(), storeID, StatusPending, 10)
	if len(items) != 1 || items[0].Action != ActionSyncFull {
		t.Fatalf("expected a SYNC_FULL marker, got %+v", items)
	}
	if items[0].EntityID != uuid.Nil {
		t.Fatalf("marker targets no entity: %+v", items[0])
	}
}
