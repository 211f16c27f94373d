package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entity sync states mirrored on every syncable row.
const (
	SyncStatusPending = "PENDING"
	SyncStatusSynced  = "SYNCED"
	SyncStatusFailed  = "FAILED"
)

type CompanyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CompanyModel) TableName() string {
	return "companies"
}

type StoreModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;column:company_id;index" json:"company_id"`
	Name           string     `gorm:"column:name" json:"name"`
	AimsStoreCode  string     `gorm:"column:aims_store_code;uniqueIndex" json:"aims_store_code"`
	SyncEnabled    bool       `gorm:"column:sync_enabled;default:true" json:"sync_enabled"`
	LastAimsSyncAt *time.Time `gorm:"column:last_aims_sync_at" json:"last_aims_sync_at,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (StoreModel) TableName() string {
	return "stores"
}

type SpaceModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	StoreID      uuid.UUID         `gorm:"type:uuid;column:store_id;index" json:"store_id"`
	ExternalID   string            `gorm:"column:external_id;index" json:"external_id"`
	Name         string            `gorm:"column:name" json:"name"`
	LabelCode    string            `gorm:"column:label_code" json:"label_code,omitempty"`
	Data         datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	SyncStatus   string            `gorm:"column:sync_status;default:'PENDING'" json:"sync_status"`
	LastSyncedAt *time.Time        `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (SpaceModel) TableName() string {
	return "spaces"
}

// PersonModel's external article key is the assigned slot, not ExternalID.
// An empty AssignedSpaceID means the person has nothing to push.
type PersonModel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	StoreID         uuid.UUID         `gorm:"type:uuid;column:store_id;index" json:"store_id"`
	ExternalID      string            `gorm:"column:external_id;index" json:"external_id,omitempty"`
	Name            string            `gorm:"column:name" json:"name"`
	AssignedSpaceID string            `gorm:"column:assigned_space_id;index" json:"assigned_space_id,omitempty"`
	LabelCode       string            `gorm:"column:label_code" json:"label_code,omitempty"`
	Data            datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	SyncStatus      string            `gorm:"column:sync_status;default:'PENDING'" json:"sync_status"`
	LastSyncedAt    *time.Time        `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (PersonModel) TableName() string {
	return "people"
}

type ConferenceRoomModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	StoreID      uuid.UUID         `gorm:"type:uuid;column:store_id;index" json:"store_id"`
	ExternalID   string            `gorm:"column:external_id;index" json:"external_id"`
	Name         string            `gorm:"column:name" json:"name"`
	LabelCode    string            `gorm:"column:label_code" json:"label_code,omitempty"`
	Data         datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	SyncStatus   string            `gorm:"column:sync_status;default:'PENDING'" json:"sync_status"`
	LastSyncedAt *time.Time        `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (ConferenceRoomModel) TableName() string {
	return "conference_rooms"
}
