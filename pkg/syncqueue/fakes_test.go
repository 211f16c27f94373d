package syncqueue

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/article"
	"github.com/shelfgrid/platform/pkg/common/logger"
	"github.com/shelfgrid/platform/pkg/common/models"
	"github.com/shelfgrid/platform/pkg/store"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeQueue mimics the database queue with compare-and-swap claim
// semantics, so claim races behave the way the conditional update does.
type fakeQueue struct {
	mu    sync.Mutex
	items map[uuid.UUID]*QueueItemModel
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{items: make(map[uuid.UUID]*QueueItemModel)}
}

func (q *fakeQueue) add(item *QueueItemModel) {
	q.mu.Lock()
	defer q.mu.Unlock()
	copied := *item
	q.items[item.ID] = &copied
}

func (q *fakeQueue) get(id uuid.UUID) QueueItemModel {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.items[id]
}

func (q *fakeQueue) Enqueue(ctx context.Context, item *QueueItemModel) error {
	q.add(item)
	return nil
}

func (q *fakeQueue) ClaimDue(ctx context.Context, cutoff time.Time, limit int) ([]QueueItemModel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*QueueItemModel
	for _, item := range q.items {
		if item.Status == StatusPending && !item.ScheduledAt.After(cutoff) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]QueueItemModel, 0, len(due))
	for _, item := range due {
		if item.Status != StatusPending {
			continue
		}
		item.Status = StatusProcessing
		claimed = append(claimed, *item)
	}
	return claimed, nil
}

func (q *fakeQueue) ClaimOne(ctx context.Context, id uuid.UUID) (*QueueItemModel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	if item.Status != StatusPending {
		return nil, ErrItemNotClaimable
	}
	item.Status = StatusProcessing
	copied := *item
	return &copied, nil
}

func (q *fakeQueue) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item := q.items[id]
	item.Status = StatusCompleted
	item.ProcessedAt = &at
	item.ErrorMessage = ""
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, message string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item := q.items[id]
	item.Status = StatusFailed
	item.Attempts = attempts
	item.ErrorMessage = message
	item.ProcessedAt = &at
	return nil
}

func (q *fakeQueue) Reschedule(ctx context.Context, id uuid.UUID, attempts int, message string, nextAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item := q.items[id]
	item.Status = StatusPending
	item.Attempts = attempts
	item.ErrorMessage = message
	item.ScheduledAt = nextAt
	return nil
}

func (q *fakeQueue) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if item.Status != StatusFailed {
		return ErrItemNotFailed
	}
	item.Status = StatusPending
	item.Attempts = 0
	item.ProcessedAt = nil
	return nil
}

func (q *fakeQueue) Get(ctx context.Context, id uuid.UUID) (*QueueItemModel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (q *fakeQueue) ListByStore(ctx context.Context, storeID uuid.UUID, status string, limit int) ([]QueueItemModel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []QueueItemModel
	for _, item := range q.items {
		if item.StoreID == storeID && (status == "" || item.Status == status) {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

type entityKey struct {
	entityType string
	id         uuid.UUID
}

type fakeEntities struct {
	mu        sync.Mutex
	syncables map[entityKey]article.Syncable
	synced    []entityKey
	failed    []entityKey
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{syncables: make(map[entityKey]article.Syncable)}
}

func (e *fakeEntities) put(entityType string, id uuid.UUID, s article.Syncable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncables[entityKey{entityType, id}] = s
}

func (e *fakeEntities) GetSyncable(ctx context.Context, entityType string, entityID uuid.UUID) (article.Syncable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.syncables[entityKey{entityType, entityID}]
	if !ok {
		return nil, store.ErrEntityNotFound
	}
	return s, nil
}

func (e *fakeEntities) ResolveExternalKey(ctx context.Context, entityType string, entityID uuid.UUID) (string, error) {
	s, err := e.GetSyncable(ctx, entityType, entityID)
	if err != nil {
		return "", nil
	}
	key, ok := s.ExternalKey()
	if !ok {
		return "", nil
	}
	return key, nil
}

func (e *fakeEntities) MarkSynced(ctx context.Context, entityType string, entityID uuid.UUID, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := entityKey{entityType, entityID}
	if _, ok := e.syncables[k]; !ok {
		return store.ErrEntityNotFound
	}
	e.synced = append(e.synced, k)
	return nil
}

func (e *fakeEntities) MarkSyncFailed(ctx context.Context, entityType string, entityID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failed = append(e.failed, entityKey{entityType, entityID})
	return nil
}

type fakeStores struct {
	mu      sync.Mutex
	stores  map[uuid.UUID]*store.StoreModel
	touched map[uuid.UUID]time.Time
	getErr  error
}

func newFakeStores(stores ...*store.StoreModel) *fakeStores {
	f := &fakeStores{stores: make(map[uuid.UUID]*store.StoreModel), touched: make(map[uuid.UUID]time.Time)}
	for _, s := range stores {
		f.stores[s.ID] = s
	}
	return f
}

func (f *fakeStores) setGetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

func (f *fakeStores) GetStore(ctx context.Context, id uuid.UUID) (*store.StoreModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.stores[id]
	if !ok {
		return nil, store.ErrStoreNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStores) ListSyncEnabledStores(ctx context.Context) ([]store.StoreModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.StoreModel
	for _, s := range f.stores {
		if s.SyncEnabled {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AimsStoreCode < out[j].AimsStoreCode })
	return out, nil
}

func (f *fakeStores) TouchLastAimsSync(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	return nil
}

type pushCall struct {
	storeCode string
	articles  []models.Article
}

type deleteCall struct {
	storeCode string
	ids       []string
}

type fakeGateway struct {
	mu       sync.Mutex
	pushes   []pushCall
	deletes  []deleteCall
	pulls    map[string][]models.Article
	pushErrs []error // consumed in order; nil entries succeed
}

func (g *fakeGateway) PullArticles(ctx context.Context, storeCode string) ([]models.Article, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pulls[storeCode], nil
}

func (g *fakeGateway) PushArticles(ctx context.Context, storeCode string, articles []models.Article) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pushErrs) > 0 {
		err := g.pushErrs[0]
		g.pushErrs = g.pushErrs[1:]
		if err != nil {
			return err
		}
	}
	g.pushes = append(g.pushes, pushCall{storeCode: storeCode, articles: articles})
	return nil
}

func (g *fakeGateway) DeleteArticles(ctx context.Context, storeCode string, articleIDs []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, deleteCall{storeCode: storeCode, ids: articleIDs})
	return nil
}

func (g *fakeGateway) gatewayCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pushes) + len(g.deletes)
}

type staticFormats struct{}

func (staticFormats) Get(ctx context.Context, storeCode string) models.ArticleFormat {
	return models.ArticleFormat{Version: "1", IDField: "articleId", NameField: "articleName"}
}

// fakeClock drives the processor's notion of now.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
