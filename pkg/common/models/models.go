package models

import (
	"time"

	"github.com/google/uuid"
)

// Syncable entity kinds. The external article key is type-specific:
// space -> external_id, person -> assigned_space_id, conference -> "C" + external_id.
const (
	EntityTypeSpace      = "space"
	EntityTypePerson     = "person"
	EntityTypeConference = "conference"
)

// ChangePayload is the versioned snapshot carried by a queue item. The
// ExternalID captured at enqueue time takes precedence over a live lookup
// when resolving delete keys, so deletes still work after the local row is
// gone.
type ChangePayload struct {
	Version    int                    `json:"version"`
	ExternalID string                 `json:"external_id,omitempty"`
	LabelCode  string                 `json:"label_code,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Article is the external device-management record bound to a shelf label.
type Article struct {
	ArticleID   string                 `json:"articleId"`
	ArticleName string                 `json:"articleName"`
	LabelCode   string                 `json:"labelCode,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// ArticleFormat is the per-company field mapping AIMS expects article
// payloads to follow. Fetched from the gateway and cached; an empty Fields
// slice means "project every attribute".
type ArticleFormat struct {
	Version   string   `json:"version" yaml:"version"`
	IDField   string   `json:"id_field" yaml:"id_field"`
	NameField string   `json:"name_field" yaml:"name_field"`
	Fields    []string `json:"fields" yaml:"fields"`
}

// StoreConfig is the AIMS-side configuration for one store.
type StoreConfig struct {
	StoreCode string `json:"storeCode"`
	Company   string `json:"company"`
	Active    bool   `json:"active"`
}

// Event bus models
type SyncEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // item_completed, item_failed, reconcile_completed
	StoreID   string                 `json:"store_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// SyncResult aggregates one processor tick.
type SyncResult struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

type ItemFailure struct {
	ItemID uuid.UUID `json:"item_id"`
	Error  string    `json:"error"`
}

// ReconcileResult aggregates one reconciliation pass over a store.
type ReconcileResult struct {
	StoreID   uuid.UUID `json:"store_id"`
	Pulled    int       `json:"pulled"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
}

// Store service request models
type CreateSpaceRequest struct {
	ExternalID string                 `json:"external_id"`
	Name       string                 `json:"name"`
	LabelCode  string                 `json:"label_code,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

type UpdateSpaceRequest struct {
	Name      *string                `json:"name,omitempty"`
	LabelCode *string                `json:"label_code,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type CreatePersonRequest struct {
	Name            string                 `json:"name"`
	AssignedSpaceID string                 `json:"assigned_space_id,omitempty"`
	LabelCode       string                 `json:"label_code,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

type UpdatePersonRequest struct {
	Name            *string                `json:"name,omitempty"`
	AssignedSpaceID *string                `json:"assigned_space_id,omitempty"`
	LabelCode       *string                `json:"label_code,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

type CreateConferenceRoomRequest struct {
	ExternalID string                 `json:"external_id"`
	Name       string                 `json:"name"`
	LabelCode  string                 `json:"label_code,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

type UpdateConferenceRoomRequest struct {
	Name      *string                `json:"name,omitempty"`
	LabelCode *string                `json:"label_code,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type UpdateStoreSyncRequest struct {
	SyncEnabled bool `json:"sync_enabled"`
}

type CreateStoreRequest struct {
	CompanyID     uuid.UUID `json:"company_id"`
	Name          string    `json:"name"`
	AimsStoreCode string    `json:"aims_store_code"`
}
