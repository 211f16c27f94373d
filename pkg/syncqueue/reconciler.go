package syncqueue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/observability/metrics"
	"github.com/shelfgrid/platform/pkg/store"
)

// ArticleApplier merges one pulled article into the local store.
type ArticleApplier interface {
	ApplyArticle(ctx context.Context, storeID uuid.UUID, art models.Article, at time.Time) (string, error)
}

// Reconciler is the pull-direction counterpart to the processor: it
// periodically pulls the full external article set per store and merges it
// into local entities. It runs on its own timer and shares entity rows with
// the processor under last-writer-wins.
type Reconciler struct {
	stores   StoreDirectory
	entities ArticleApplier
	gateway  Gateway
	events   EventPublisher

	inFlight atomic.Bool
	now      func() time.Time
}

func NewReconciler(stores StoreDirectory, entities ArticleApplier, gateway Gateway, events EventPublisher) *Reconciler {
	return &Reconciler{
		stores:   stores,
		entities: entities,
		gateway:  gateway,
		events:   events,
		now:      time.Now,
	}
}

// Run drives ReconcileAll on a fixed cadence until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	logger.Log.WithField("interval", interval.String()).Info("Reconciliation job started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Reconciliation job stopped")
			return
		case <-ticker.C:
			if _, err := r.ReconcileAll(ctx); err != nil {
				logger.Log.WithError(err).Error("Reconciliation pass failed")
			}
		}
	}
}

// ReconcileAll runs one pass over every sync-enabled store. A failing store
// is logged and skipped, never aborting the pass.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]models.ReconcileResult, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		logger.Log.Warn("Skipping reconciliation pass, previous pass still in flight")
		return nil, nil
	}
	defer r.inFlight.Store(false)

	stores, err := r.stores.ListSyncEnabledStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	results := make([]models.ReconcileResult, 0, len(stores))
	for i := range stores {
		result, err := r.ReconcileStore(ctx, &stores[i])
		if err != nil {
			logger.Log.WithError(err).WithField("store_id", stores[i].ID).Error("Store reconciliation failed")
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// ReconcileStore pulls the store's full article set and upserts matching
// local entities.
func (r *Reconciler) ReconcileStore(ctx context.Context, st *store.StoreModel) (models.ReconcileResult, error) {
	result := models.ReconcileResult{StoreID: st.ID}

	articles, err := r.gateway.PullArticles(ctx, st.AimsStoreCode)
	if err != nil {
		return result, fmt.Errorf("pull articles: %w", err)
	}
	result.Pulled = len(articles)

	now := r.now().UTC()
	for _, art := range articles {
		outcome, err := r.entities.ApplyArticle(ctx, st.ID, art, now)
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"store_id":   st.ID,
				"article_id": art.ArticleID,
			}).Error("Failed to apply article")
			continue
		}
		switch outcome {
		case store.ApplyCreated:
			result.Created++
		case store.ApplyUpdated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	if err := r.stores.TouchLastAimsSync(ctx, st.ID, r.now().UTC()); err != nil {
		logger.Log.WithError(err).WithField("store_id", st.ID).Error("Failed to update store sync timestamp")
	}

	metrics.ObserveReconcile(result.Pulled, result.Created, result.Updated, result.Unchanged)

	logger.Log.WithFields(map[string]interface{}{
		"store_id":  st.ID,
		"pulled":    result.Pulled,
		"created":   result.Created,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
	}).Info("Store reconciled")

	if r.events != nil {
		data := map[string]interface{}{
			"pulled":    result.Pulled,
			"created":   result.Created,
			"updated":   result.Updated,
			"unchanged": result.Unchanged,
		}
		if err := r.events.PublishSyncEvent(ctx, "reconcile_completed", st.ID.String(), data); err != nil {
			logger.Log.WithError(err).WithField("store_id", st.ID).Warn("Failed to publish reconcile event")
		}
	}

	return result, nil
}
