package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/AmielDylan/sendbox-sub002/pkg/enums"
)

// AuditLog is an append-only record of every admin-triggered financial action.
type AuditLog struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID   uuid.UUID         `gorm:"column:actor_id;type:uuid;not null;index"`
	Action    enums.AuditAction `gorm:"column:action;type:text;not null"`
	TargetID  uuid.UUID         `gorm:"column:target_id;type:uuid;not null;index"`
	Reason    string            `gorm:"column:reason;not null"`
	IP        string            `gorm:"column:ip"`
	UserAgent string            `gorm:"column:user_agent"`
	Metadata  json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
