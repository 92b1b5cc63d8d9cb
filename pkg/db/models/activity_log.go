package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/enums"
)

// ActivityLog is an append-only audit row.
type ActivityLog struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Action    enums.ActivityAction `gorm:"column:action;type:varchar(32);not null"`
	Metadata  json.RawMessage      `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (a *ActivityLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
