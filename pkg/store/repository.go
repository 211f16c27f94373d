package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/article"
	"github.com/shelfgrid/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrStoreNotFound  = errors.New("store not found")
	ErrEntityNotFound = errors.New("entity not found")
)

// Reconciliation outcomes for one pulled article.
const (
	ApplyCreated   = "created"
	ApplyUpdated   = "updated"
	ApplyUnchanged = "unchanged"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&CompanyModel{},
		&StoreModel{},
		&SpaceModel{},
		&PersonModel{},
		&ConferenceRoomModel{},
	)
}

// Stores

func (r *Repository) CreateStore(ctx context.Context, s *StoreModel) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) GetStore(ctx context.Context, id uuid.UUID) (*StoreModel, error) {
	var s StoreModel
	result := r.db.WithContext(ctx).First(&s, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	return &s, result.Error
}

func (r *Repository) ListStores(ctx context.Context) ([]StoreModel, error) {
	var stores []StoreModel
	result := r.db.WithContext(ctx).Order("created_at asc").Find(&stores)
	return stores, result.Error
}

func (r *Repository) ListSyncEnabledStores(ctx context.Context) ([]StoreModel, error) {
	var stores []StoreModel
	result := r.db.WithContext(ctx).Where("sync_enabled = ?", true).Order("created_at asc").Find(&stores)
	return stores, result.Error
}

func (r *Repository) SetSyncEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).Model(&StoreModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sync_enabled": enabled,
		"updated_at":   time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStoreNotFound
	}
	return nil
}

func (r *Repository) TouchLastAimsSync(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&StoreModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_aims_sync_at": at,
		"updated_at":        at,
	}).Error
}

// Spaces

func (r *Repository) CreateSpace(ctx context.Context, space *SpaceModel) error {
	return r.db.WithContext(ctx).Create(space).Error
}

func (r *Repository) UpdateSpace(ctx context.Context, space *SpaceModel) error {
	return r.db.WithContext(ctx).Save(space).Error
}

func (r *Repository) GetSpace(ctx context.Context, id uuid.UUID) (*SpaceModel, error) {
	var space SpaceModel
	result := r.db.WithContext(ctx).First(&space, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrEntityNotFound
	}
	return &space, result.Error
}

func (r *Repository) ListSpaces(ctx context.Context, storeID uuid.UUID) ([]SpaceModel, error) {
	var spaces []SpaceModel
	result := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("created_at asc").Find(&spaces)
	return spaces, result.Error
}

func (r *Repository) DeleteSpace(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&SpaceModel{}, "id = ?", id).Error
}

// People

func (r *Repository) CreatePerson(ctx context.Context, person *PersonModel) error {
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *Repository) UpdatePerson(ctx context.Context, person *PersonModel) error {
	return r.db.WithContext(ctx).Save(person).Error
}

func (r *Repository) GetPerson(ctx context.Context, id uuid.UUID) (*PersonModel, error) {
	var person PersonModel
	result := r.db.WithContext(ctx).First(&person, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrEntityNotFound
	}
	return &person, result.Error
}

func (r *Repository) ListPeople(ctx context.Context, storeID uuid.UUID) ([]PersonModel, error) {
	var people []PersonModel
	result := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("created_at asc").Find(&people)
	return people, result.Error
}

func (r *Repository) DeletePerson(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&PersonModel{}, "id = ?", id).Error
}

// Conference rooms

func (r *Repository) CreateConferenceRoom(ctx context.Context, room *ConferenceRoomModel) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *Repository) UpdateConferenceRoom(ctx context.Context, room *ConferenceRoomModel) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *Repository) GetConferenceRoom(ctx context.Context, id uuid.UUID) (*ConferenceRoomModel, error) {
	var room ConferenceRoomModel
	result := r.db.WithContext(ctx).First(&room, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrEntityNotFound
	}
	return &room, result.Error
}

func (r *Repository) ListConferenceRooms(ctx context.Context, storeID uuid.UUID) ([]ConferenceRoomModel, error) {
	var rooms []ConferenceRoomModel
	result := r.db.WithContext(ctx).Where("store_id = ?", storeID).Order("created_at asc").Find(&rooms)
	return rooms, result.Error
}

func (r *Repository) DeleteConferenceRoom(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&ConferenceRoomModel{}, "id = ?", id).Error
}

// Sync support

// GetSyncable resolves an entity into its article-building shape.
func (r *Repository) GetSyncable(ctx context.Context, entityType string, entityID uuid.UUID) (article.Syncable, error) {
	switch entityType {
	case models.EntityTypeSpace:
		space, err := r.GetSpace(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return article.Space{
			ExternalID: space.ExternalID,
			Name:       space.Name,
			LabelCode:  space.LabelCode,
			Data:       map[string]interface{}(space.Data),
		}, nil
	case models.EntityTypePerson:
		person, err := r.GetPerson(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return article.Person{
			Name:            person.Name,
			AssignedSpaceID: person.AssignedSpaceID,
			LabelCode:       person.LabelCode,
			Data:            map[string]interface{}(person.Data),
		}, nil
	case models.EntityTypeConference:
		room, err := r.GetConferenceRoom(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return article.ConferenceRoom{
			ExternalID: room.ExternalID,
			Name:       room.Name,
			LabelCode:  room.LabelCode,
			Data:       map[string]interface{}(room.Data),
		}, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// ResolveExternalKey looks up the live entity's article key. Returns "" when
// the entity is gone or has no key.
func (r *Repository) ResolveExternalKey(ctx context.Context, entityType string, entityID uuid.UUID) (string, error) {
	syncable, err := r.GetSyncable(ctx, entityType, entityID)
	if errors.Is(err, ErrEntityNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	key, ok := syncable.ExternalKey()
	if !ok {
		return "", nil
	}
	return key, nil
}

func (r *Repository) entityModel(entityType string) (interface{}, error) {
	switch entityType {
	case models.EntityTypeSpace:
		return &SpaceModel{}, nil
	case models.EntityTypePerson:
		return &PersonModel{}, nil
	case models.EntityTypeConference:
		return &ConferenceRoomModel{}, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// MarkSynced records a successful push on the entity row.
func (r *Repository) MarkSynced(ctx context.Context, entityType string, entityID uuid.UUID, at time.Time) error {
	model, err := r.entityModel(entityType)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(model).Where("id = ?", entityID).Updates(map[string]interface{}{
		"sync_status":    SyncStatusSynced,
		"last_synced_at": at,
		"updated_at":     at,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// MarkSyncFailed records a terminal push failure on the entity row.
func (r *Repository) MarkSyncFailed(ctx context.Context, entityType string, entityID uuid.UUID) error {
	model, err := r.entityModel(entityType)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(model).Where("id = ?", entityID).Updates(map[string]interface{}{
		"sync_status": SyncStatusFailed,
		"updated_at":  time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntityNotFound
	}
	return nil
}

// ApplyArticle merges one pulled AIMS article into the local store: rooms by
// their "C"-prefixed key, then spaces by external id, then people by assigned
// slot. Unmatched keys become new spaces already marked SYNCED.
func (r *Repository) ApplyArticle(ctx context.Context, storeID uuid.UUID, art models.Article, at time.Time) (string, error) {
	key := art.ArticleID
	if key == "" {
		return ApplyUnchanged, nil
	}

	if strings.HasPrefix(key, "C") {
		var room ConferenceRoomModel
		result := r.db.WithContext(ctx).First(&room, "store_id = ? AND external_id = ?", storeID, strings.TrimPrefix(key, "C"))
		if result.Error == nil {
			return r.applyToRoom(ctx, &room, art, at)
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", result.Error
		}
	}

	var space SpaceModel
	result := r.db.WithContext(ctx).First(&space, "store_id = ? AND external_id = ?", storeID, key)
	if result.Error == nil {
		return r.applyToSpace(ctx, &space, art, at)
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", result.Error
	}

	var person PersonModel
	result = r.db.WithContext(ctx).First(&person, "store_id = ? AND assigned_space_id = ?", storeID, key)
	if result.Error == nil {
		return r.applyToPerson(ctx, &person, art, at)
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", result.Error
	}

	created := &SpaceModel{
		ID:           uuid.New(),
		StoreID:      storeID,
		ExternalID:   key,
		Name:         art.ArticleName,
		LabelCode:    art.LabelCode,
		Data:         datatypes.JSONMap(art.Data),
		SyncStatus:   SyncStatusSynced,
		LastSyncedAt: &at,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	if err := r.CreateSpace(ctx, created); err != nil {
		return "", err
	}
	return ApplyCreated, nil
}

func (r *Repository) applyToSpace(ctx context.Context, space *SpaceModel, art models.Article, at time.Time) (string, error) {
	unchanged := space.LabelCode == art.LabelCode &&
		space.SyncStatus == SyncStatusSynced &&
		reflect.DeepEqual(map[string]interface{}(space.Data), art.Data)
	if unchanged {
		return ApplyUnchanged, nil
	}
	space.LabelCode = art.LabelCode
	space.Data = datatypes.JSONMap(art.Data)
	space.SyncStatus = SyncStatusSynced
	space.LastSyncedAt = &at
	space.UpdatedAt = at
	if err := r.UpdateSpace(ctx, space); err != nil {
		return "", err
	}
	return ApplyUpdated, nil
}

func (r *Repository) applyToPerson(ctx context.Context, person *PersonModel, art models.Article, at time.Time) (string, error) {
	unchanged := person.LabelCode == art.LabelCode &&
		person.SyncStatus == SyncStatusSynced &&
		reflect.DeepEqual(map[string]interface{}(person.Data), art.Data)
	if unchanged {
		return ApplyUnchanged, nil
	}
	person.LabelCode = art.LabelCode
	person.Data = datatypes.JSONMap(art.Data)
	person.SyncStatus = SyncStatusSynced
	person.LastSyncedAt = &at
	person.UpdatedAt = at
	if err := r.UpdatePerson(ctx, person); err != nil {
		return "", err
	}
	return ApplyUpdated, nil
}

func (r *Repository) applyToRoom(ctx context.Context, room *ConferenceRoomModel, art models.Article, at time.Time) (string, error) {
	unchanged := room.LabelCode == art.LabelCode &&
		room.SyncStatus == SyncStatusSynced &&
		reflect.DeepEqual(map[string]interface{}(room.Data), art.Data)
	if unchanged {
		return ApplyUnchanged, nil
	}
	room.LabelCode = art.LabelCode
	room.Data = datatypes.JSONMap(art.Data)
	room.SyncStatus = SyncStatusSynced
	room.LastSyncedAt = &at
	room.UpdatedAt = at
	if err := r.UpdateConferenceRoom(ctx, room); err != nil {
		return "", err
	}
	return ApplyUpdated, nil
}
