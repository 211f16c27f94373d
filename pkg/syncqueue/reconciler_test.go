package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/store"
)

type applyCall struct {
	storeID uuid.UUID
	art     models.Article
}

type fakeApplier struct {
	mu       sync.Mutex
	outcomes map[string]string // article id -> outcome
	calls    []applyCall
	err      error
}

func (a *fakeApplier) ApplyArticle(ctx context.Context, storeID uuid.UUID, art models.Article, at time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.calls = append(a.calls, applyCall{storeID: storeID, art: art})
	outcome, ok := a.outcomes[art.ArticleID]
	if !ok {
		outcome = store.ApplyCreated
	}
	return outcome, nil
}

func TestReconcileStoreCounts(t *testing.T) {
	storeID := uuid.New()
	st := &store.StoreModel{ID: storeID, AimsStoreCode: "ST1", SyncEnabled: true}
	stores := newFakeStores(st)
	gateway := &fakeGateway{pulls: map[string][]models.Article{
		"ST1": {
			{ArticleID: "A1", ArticleName: "Desk 1"},
			{ArticleID: "A2", ArticleName: "Desk 2"},
			{ArticleID: "C7", ArticleName: "Willow"},
		},
	}}
	applier := &fakeApplier{outcomes: map[string]string{
		"A1": store.ApplyUpdated,
		"A2": store.ApplyUnchanged,
		"C7": store.ApplyCreated,
	}}

	rec := NewReconciler(stores, applier, gateway, nil)
	result, err := rec.ReconcileStore(context.Background(), st)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if result.Pulled != 3 || result.Created != 1 || result.Updated != 1 || result.Unchanged != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(applier.calls) != 3 {
		t.Fatalf("expected 3 applies, got %d", len(applier.calls))
	}
	if _, ok := stores.touched[storeID]; !ok {
		t.Fatal("reconcile must touch the store sync timestamp")
	}
}

func TestReconcileAllOnlyVisitsSyncEnabledStores(t *testing.T) {
	enabled := &store.StoreModel{ID: uuid.New(), AimsStoreCode: "ST1", SyncEnabled: true}
	disabled := &store.StoreModel{ID: uuid.New(), AimsStoreCode: "ST2", SyncEnabled: false}
	stores := newFakeStores(enabled, disabled)
	gateway := &fakeGateway{pulls: map[string][]models.Article{
		"ST1": {{ArticleID: "A1"}},
		"ST2": {{ArticleID: "B1"}},
	}}
	applier := &fakeApplier{}

	rec := NewReconciler(stores, applier, gateway, nil)
	results, err := rec.ReconcileAll(context.Background())
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected one store result, got %d", len(results))
	}
	if results[0].StoreID != enabled.ID {
		t.Fatalf("only the enabled store should be reconciled: %+v", results)
	}
	for _, call := range applier.calls {
		if call.storeID == disabled.ID {
			t.Fatal("disabled store must not be reconciled")
		}
	}
}

func TestReconcileAllContinuesPastApplyErrors(t *testing.T) {
	st := &store.StoreModel{ID: uuid.New(), AimsStoreCode: "ST1", SyncEnabled: true}
	stores := newFakeStores(st)
	gateway := &fakeGateway{pulls: map[string][]models.Article{
		"ST1": {{ArticleID: "A1"}, {ArticleID: "A2"}},
	}}
	applier := &fakeApplier{err: errors.New("constraint violation")}

	rec := NewReconciler(stores, applier, gateway, nil)
	result, err := rec.ReconcileStore(context.Background(), st)
	if err != nil {
		t.Fatalf("apply errors must not abort the store pass: %v", err)
	}
	if result.Created+result.Updated+result.Unchanged != 0 {
		t.Fatalf("failed applies must not be counted: %+v", result)
	}
	if _, ok := stores.touched[st.ID]; !ok {
		t.Fatal("the pass still completed; timestamp should be touched")
	}
}
