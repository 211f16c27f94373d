package syncqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shelfgrid/platform/pkg/common/models"
	"gorm.io/datatypes"
)

// Queue item states. Transitions are monotonic:
// PENDING -> PROCESSING -> {COMPLETED | PENDING(retry) | FAILED}.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionDelete   = "DELETE"
	ActionSyncFull = "SYNC_FULL"
)

const PayloadVersion = 1

// QueueItemModel is one durable unit of pending sync work. Rows are never
// deleted; terminal items stay around for audit.
type QueueItemModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	StoreID      uuid.UUID      `gorm:"type:uuid;column:store_id;index" json:"store_id"`
	EntityType   string         `gorm:"column:entity_type" json:"entity_type"`
	EntityID     uuid.UUID      `gorm:"type:uuid;column:entity_id" json:"entity_id"`
	Action       string         `gorm:"column:action" json:"action"`
	Payload      datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	Status       string         `gorm:"column:status;index:idx_queue_due,priority:1" json:"status"`
	Attempts     int            `gorm:"column:attempts;default:0" json:"attempts"`
	MaxAttempts  int            `gorm:"column:max_attempts;default:5" json:"max_attempts"`
	ScheduledAt  time.Time      `gorm:"column:scheduled_at;index:idx_queue_due,priority:2" json:"scheduled_at"`
	ProcessedAt  *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (QueueItemModel) TableName() string {
	return "sync_queue_items"
}

// DecodePayload unpacks the change snapshot. A missing payload decodes to
// the zero value.
func (m *QueueItemModel) DecodePayload() (models.ChangePayload, error) {
	var payload models.ChangePayload
	if len(m.Payload) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(m.Payload, &payload)
	return payload, err
}
