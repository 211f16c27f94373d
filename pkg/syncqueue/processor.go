package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/article"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/observability/metrics"
	"github.com/shelfgrid/platform/pkg/store"
)

// QueueStore is the claiming side of the queue table. The claim methods must
// be atomic against concurrent claimers across processes; the database-level
// conditional update is the only mutual exclusion the engine relies on.
type QueueStore interface {
	ClaimDue(ctx context.Context, cutoff time.Time, limit int) ([]QueueItemModel, error)
	ClaimOne(ctx context.Context, id uuid.UUID) (*QueueItemModel, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, message string, at time.Time) error
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, message string, nextAt time.Time) error
}

// EntityStore resolves and updates the syncable entity rows.
type EntityStore interface {
	GetSyncable(ctx context.Context, entityType string, entityID uuid.UUID) (article.Syncable, error)
	ResolveExternalKey(ctx context.Context, entityType string, entityID uuid.UUID) (string, error)
	MarkSynced(ctx context.Context, entityType string, entityID uuid.UUID, at time.Time) error
	MarkSyncFailed(ctx context.Context, entityType string, entityID uuid.UUID) error
}

// StoreDirectory resolves stores and their sync gates.
type StoreDirectory interface {
	GetStore(ctx context.Context, id uuid.UUID) (*store.StoreModel, error)
	ListSyncEnabledStores(ctx context.Context) ([]store.StoreModel, error)
	TouchLastAimsSync(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Gateway is the push/delete slice of the AIMS client.
type Gateway interface {
	PullArticles(ctx context.Context, storeCode string) ([]models.Article, error)
	PushArticles(ctx context.Context, storeCode string, articles []models.Article) error
	DeleteArticles(ctx context.Context, storeCode string, articleIDs []string) error
}

// FormatSource serves article formats; failures degrade internally so Get
// never fails a sync pass.
type FormatSource interface {
	Get(ctx context.Context, storeCode string) models.ArticleFormat
}

// EventPublisher emits sync lifecycle events. Publishing is best effort.
type EventPublisher interface {
	PublishSyncEvent(ctx context.Context, eventType string, storeID string, data map[string]interface{}) error
}

// Options tune the processor. Zero values fall back to defaults.
type Options struct {
	ProcessingDelay time.Duration // debounce window before an item is eligible
	BatchSize       int           // max items claimed per tick
	BaseRetryDelay  time.Duration // backoff base
	MaxRetryDelay   time.Duration // backoff cap
	MaxAttempts     int           // fallback when an item carries no bound
}

func (o Options) withDefaults() Options {
	if o.ProcessingDelay <= 0 {
		o.ProcessingDelay = 5 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.BaseRetryDelay <= 0 {
		o.BaseRetryDelay = time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 60 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	return o
}

// Processor drains due queue items: claim, build, push or delete, retry
// with bounded exponential backoff, and keep entity/store sync metadata
// consistent with outcomes.
type Processor struct {
	queue    QueueStore
	entities EntityStore
	stores   StoreDirectory
	gateway  Gateway
	formats  FormatSource
	events   EventPublisher
	opts     Options

	// Guards same-process tick overlap only; cross-process safety comes
	// entirely from the claim protocol.
	inFlight atomic.Bool

	now func() time.Time
}

func NewProcessor(queue QueueStore, entities EntityStore, stores StoreDirectory, gateway Gateway, formats FormatSource, events EventPublisher, opts Options) *Processor {
	return &Processor{
		queue:    queue,
		entities: entities,
		stores:   stores,
		gateway:  gateway,
		formats:  formats,
		events:   events,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// Run drives Tick on a fixed cadence until the context is cancelled.
func (p *Processor) Run(ctx context.Context, interval time.Duration) {
	logger.Log.WithField("interval", interval.String()).Info("Sync processor started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Sync processor stopped")
			return
		case <-ticker.C:
			result, err := p.Tick(ctx)
			if err != nil {
				logger.Log.WithError(err).Error("Sync tick failed")
				continue
			}
			if result.Processed > 0 {
				logger.Log.WithFields(map[string]interface{}{
					"processed": result.Processed,
					"succeeded": result.Succeeded,
					"failed":    result.Failed,
				}).Info("Sync tick finished")
			}
		}
	}
}

// Tick claims and processes one batch. Overlapping ticks are skipped, not
// queued.
func (p *Processor) Tick(ctx context.Context) (models.SyncResult, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		logger.Log.Warn("Skipping sync tick, previous tick still in flight")
		return models.SyncResult{}, nil
	}
	defer p.inFlight.Store(false)

	cutoff := p.now().Add(-p.opts.ProcessingDelay)
	items, err := p.queue.ClaimDue(ctx, cutoff, p.opts.BatchSize)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("claim batch: %w", err)
	}
	if len(items) == 0 {
		return models.SyncResult{}, nil
	}

	// Group by store, preserving claim order within each group.
	groups := make(map[uuid.UUID][]QueueItemModel)
	var order []uuid.UUID
	for _, item := range items {
		if _, seen := groups[item.StoreID]; !seen {
			order = append(order, item.StoreID)
		}
		groups[item.StoreID] = append(groups[item.StoreID], item)
	}

	var result models.SyncResult
	for _, storeID := range order {
		group := groups[storeID]
		result.Processed += len(group)

		st, err := p.stores.GetStore(ctx, storeID)
		if err != nil {
			// A missing store can never sync; anything else is an
			// infrastructure fault that gets the normal retry treatment.
			for i := range group {
				item := group[i]
				if errors.Is(err, store.ErrStoreNotFound) {
					p.failItem(ctx, &item, "store not found")
				} else {
					p.retryItem(ctx, &item, fmt.Errorf("store lookup: %w", err))
				}
				result.Failed++
				result.Failures = append(result.Failures, models.ItemFailure{ItemID: item.ID, Error: err.Error()})
			}
			continue
		}

		if !st.SyncEnabled {
			// An operator decision, not a transient fault: terminal, no
			// retries, no gateway traffic.
			for _, item := range group {
				p.failItem(ctx, &item, "sync disabled for store")
				result.Failed++
				result.Failures = append(result.Failures, models.ItemFailure{ItemID: item.ID, Error: "sync disabled for store"})
			}
			continue
		}

		for i := range group {
			item := group[i]
			if err := p.processItem(ctx, &item, st); err != nil {
				p.retryItem(ctx, &item, err)
				result.Failed++
				result.Failures = append(result.Failures, models.ItemFailure{ItemID: item.ID, Error: err.Error()})
				continue
			}
			p.completeItem(ctx, &item)
			result.Succeeded++
		}

		// A sync attempt occurred for this store, whatever the item mix.
		if err := p.stores.TouchLastAimsSync(ctx, storeID, p.now().UTC()); err != nil {
			logger.Log.WithError(err).WithField("store_id", storeID).Error("Failed to update store sync timestamp")
		}
	}

	metrics.ObserveTick(result.Processed, result.Succeeded, result.Failed)
	return result, nil
}

// ProcessItem runs the claim-process-finalize sequence for exactly one named
// item, outside the batch loop. Used by the retry API.
func (p *Processor) ProcessItem(ctx context.Context, id uuid.UUID) error {
	item, err := p.queue.ClaimOne(ctx, id)
	if err != nil {
		return err
	}

	st, err := p.stores.GetStore(ctx, item.StoreID)
	if err != nil {
		if errors.Is(err, store.ErrStoreNotFound) {
			p.failItem(ctx, item, "store not found")
		} else {
			p.retryItem(ctx, item, fmt.Errorf("store lookup: %w", err))
		}
		return err
	}
	if !st.SyncEnabled {
		p.failItem(ctx, item, "sync disabled for store")
		return errors.New("sync disabled for store")
	}

	if err := p.processItem(ctx, item, st); err != nil {
		p.retryItem(ctx, item, err)
		return err
	}

	p.completeItem(ctx, item)
	if err := p.stores.TouchLastAimsSync(ctx, item.StoreID, p.now().UTC()); err != nil {
		logger.Log.WithError(err).WithField("store_id", item.StoreID).Error("Failed to update store sync timestamp")
	}
	return nil
}

// processItem performs the gateway action for one claimed item. A nil return
// means the item is done, including the no-work outcomes: an unassigned
// person, an already-purged delete target, and the SYNC_FULL marker.
func (p *Processor) processItem(ctx context.Context, item *QueueItemModel, st *store.StoreModel) error {
	switch item.Action {
	case ActionCreate, ActionUpdate:
		syncable, err := p.entities.GetSyncable(ctx, item.EntityType, item.EntityID)
		if errors.Is(err, store.ErrEntityNotFound) {
			logger.Log.WithFields(map[string]interface{}{
				"item_id":   item.ID,
				"entity_id": item.EntityID,
			}).Info("Entity gone before push, nothing to sync")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load entity: %w", err)
		}

		format := p.formats.Get(ctx, st.AimsStoreCode)
		art, err := article.Build(syncable, format)
		if err != nil {
			return err
		}
		if art == nil {
			// Unassigned person: valid absence of work.
			return nil
		}
		if err := p.gateway.PushArticles(ctx, st.AimsStoreCode, []models.Article{*art}); err != nil {
			return fmt.Errorf("push article %s: %w", art.ArticleID, err)
		}
		return nil

	case ActionDelete:
		key, err := p.resolveDeleteKey(ctx, item)
		if err != nil {
			return err
		}
		if key == "" {
			// Entity already purged everywhere; nothing to delete.
			return nil
		}
		if err := p.gateway.DeleteArticles(ctx, st.AimsStoreCode, []string{key}); err != nil {
			return fmt.Errorf("delete article %s: %w", key, err)
		}
		return nil

	case ActionSyncFull:
		// Legacy marker; full syncs are driven by the reconciler.
		return nil

	default:
		return fmt.Errorf("unknown queue action %q", item.Action)
	}
}

// resolveDeleteKey prefers the key snapshotted at enqueue time: it may name
// an article whose local record is already gone, and it wins over a live
// lookup even when the two disagree.
func (p *Processor) resolveDeleteKey(ctx context.Context, item *QueueItemModel) (string, error) {
	payload, err := item.DecodePayload()
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if payload.ExternalID != "" {
		return payload.ExternalID, nil
	}
	return p.entities.ResolveExternalKey(ctx, item.EntityType, item.EntityID)
}

func (p *Processor) completeItem(ctx context.Context, item *QueueItemModel) {
	now := p.now().UTC()
	if err := p.queue.MarkCompleted(ctx, item.ID, now); err != nil {
		logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to mark item completed")
	}

	// Best effort: the entity may have been deleted concurrently.
	if item.Action == ActionCreate || item.Action == ActionUpdate {
		if err := p.entities.MarkSynced(ctx, item.EntityType, item.EntityID, now); err != nil && !errors.Is(err, store.ErrEntityNotFound) {
			logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to mark entity synced")
		}
	}

	p.publish(ctx, "item_completed", item, "")
}

// retryItem applies the backoff policy to a failed item: reschedule while
// attempts remain, terminal FAILED otherwise.
func (p *Processor) retryItem(ctx context.Context, item *QueueItemModel, cause error) {
	attempts := item.Attempts + 1
	maxAttempts := item.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = p.opts.MaxAttempts
	}
	now := p.now().UTC()

	if attempts >= maxAttempts {
		if err := p.queue.MarkFailed(ctx, item.ID, attempts, cause.Error(), now); err != nil {
			logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to mark item failed")
		}
		if item.EntityID != uuid.Nil {
			if err := p.entities.MarkSyncFailed(ctx, item.EntityType, item.EntityID); err != nil && !errors.Is(err, store.ErrEntityNotFound) {
				logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to mark entity failed")
			}
		}
		logger.Log.WithFields(map[string]interface{}{
			"item_id":  item.ID,
			"attempts": attempts,
		}).Error("Sync item exhausted retries")
		metrics.ObserveTerminalFailure()
		p.publish(ctx, "item_failed", item, cause.Error())
		return
	}

	delay := backoffDelay(p.opts.BaseRetryDelay, p.opts.MaxRetryDelay, attempts)
	if err := p.queue.Reschedule(ctx, item.ID, attempts, cause.Error(), now.Add(delay)); err != nil {
		logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to reschedule item")
		return
	}
	logger.Log.WithFields(map[string]interface{}{
		"item_id":  item.ID,
		"attempts": attempts,
		"delay":    delay.String(),
	}).Warn("Sync item failed, rescheduled")
}

// failItem marks an item terminally failed without consuming a retry,
// for policy failures like a disabled store.
func (p *Processor) failItem(ctx context.Context, item *QueueItemModel, message string) {
	if err := p.queue.MarkFailed(ctx, item.ID, item.Attempts, message, p.now().UTC()); err != nil {
		logger.Log.WithError(err).WithField("item_id", item.ID).Error("Failed to mark item failed")
	}
	p.publish(ctx, "item_failed", item, message)
}

func (p *Processor) publish(ctx context.Context, eventType string, item *QueueItemModel, errMsg string) {
	if p.events == nil {
		return
	}
	data := map[string]interface{}{
		"item_id":     item.ID.String(),
		"entity_type": item.EntityType,
		"action":      item.Action,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	if err := p.events.PublishSyncEvent(ctx, eventType, item.StoreID.String(), data); err != nil {
		logger.Log.WithError(err).WithField("item_id", item.ID).Warn("Failed to publish sync event")
	}
}

// backoffDelay computes min(base * 2^attempts, max).
func backoffDelay(base, max time.Duration, attempts int) time.Duration {
	delay := base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}
