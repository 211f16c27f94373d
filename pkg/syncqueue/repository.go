package syncqueue

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrItemNotFound     = errors.New("queue item not found")
	ErrItemNotClaimable = errors.New("queue item is not claimable")
	ErrItemNotFailed    = errors.New("queue item is not in FAILED state")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&QueueItemModel{})
}

func (r *Repository) Enqueue(ctx context.Context, item *QueueItemModel) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ClaimDue atomically claims up to limit due PENDING items, oldest first.
// The select and the guarded PENDING -> PROCESSING transition run in one
// transaction; the status re-check in the UPDATE's WHERE clause is what
// keeps a concurrent claimer from transitioning the same row. Any backing
// store with conditional updates inside a transaction satisfies this.
func (r *Repository) ClaimDue(ctx context.Context, cutoff time.Time, limit int) ([]QueueItemModel, error) {
	var claimed []QueueItemModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []QueueItemModel
		if err := tx.
			Where("status = ? AND scheduled_at <= ?", StatusPending, cutoff).
			Order("scheduled_at asc").
			Limit(limit).
			Find(&candidates).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}

		return tx.Model(&claimed).
			Clauses(clause.Returning{}).
			Where("id IN ? AND status = ?", ids, StatusPending).
			Updates(map[string]interface{}{
				"status":     StatusProcessing,
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	// RETURNING order is unspecified; restore oldest-first fairness.
	sort.Slice(claimed, func(i, j int) bool {
		return claimed[i].ScheduledAt.Before(claimed[j].ScheduledAt)
	})
	return claimed, nil
}

// ClaimOne claims a single named item regardless of its scheduled time,
// for manual execution via the retry API.
func (r *Repository) ClaimOne(ctx context.Context, id uuid.UUID) (*QueueItemModel, error) {
	result := r.db.WithContext(ctx).Model(&QueueItemModel{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":     StatusProcessing,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var item QueueItemModel
		lookup := r.db.WithContext(ctx).First(&item, "id = ?", id)
		if errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		if lookup.Error != nil {
			return nil, lookup.Error
		}
		return nil, ErrItemNotClaimable
	}

	var item QueueItemModel
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&QueueItemModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        StatusCompleted,
		"processed_at":  at,
		"error_message": "",
		"updated_at":    at,
	}).Error
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, message string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&QueueItemModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        StatusFailed,
		"attempts":      attempts,
		"error_message": message,
		"processed_at":  at,
		"updated_at":    at,
	}).Error
}

// Reschedule returns a failed-but-retryable item to PENDING with its next
// eligibility time. The error message is kept for visibility.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, attempts int, message string, nextAt time.Time) error {
	return r.db.WithContext(ctx).Model(&QueueItemModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        StatusPending,
		"attempts":      attempts,
		"error_message": message,
		"scheduled_at":  nextAt,
		"updated_at":    time.Now().UTC(),
	}).Error
}

// ResetForRetry moves a terminal FAILED item back to PENDING on explicit
// operator request.
func (r *Repository) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&QueueItemModel{}).
		Where("id = ? AND status = ?", id, StatusFailed).
		Updates(map[string]interface{}{
			"status":       StatusPending,
			"attempts":     0,
			"scheduled_at": now,
			"processed_at": nil,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var item QueueItemModel
		lookup := r.db.WithContext(ctx).First(&item, "id = ?", id)
		if errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		if lookup.Error != nil {
			return lookup.Error
		}
		return ErrItemNotFailed
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*QueueItemModel, error) {
	var item QueueItemModel
	result := r.db.WithContext(ctx).First(&item, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	return &item, result.Error
}

func (r *Repository) ListByStore(ctx context.Context, storeID uuid.UUID, status string, limit int) ([]QueueItemModel, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var items []QueueItemModel
	result := query.Order("scheduled_at asc").Limit(limit).Find(&items)
	return items, result.Error
}
