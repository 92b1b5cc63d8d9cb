package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/enums"
)

// Market is a binary question users stake on. WinningOutcome is set only once the market is settled.
type Market struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Question       string             `gorm:"column:question;not null"`
	Category       string             `gorm:"column:category;not null;default:''"`
	Status         enums.MarketStatus `gorm:"column:status;type:varchar(16);not null;default:'open'"`
	ClosesAt       time.Time          `gorm:"column:closes_at;not null"`
	WinningOutcome *enums.Outcome     `gorm:"column:winning_outcome;type:varchar(8)"`
	YesStakeTotal  int64              `gorm:"column:yes_stake_total;not null;default:0"`
	NoStakeTotal   int64              `gorm:"column:no_stake_total;not null;default:0"`
	SettledAt      *time.Time         `gorm:"column:settled_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Market) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// IsOpenAt reports whether the market accepts stakes at the given instant.
func (m Market) IsOpenAt(now time.Time) bool {
	return m.Status == enums.MarketStatusOpen && m.ClosesAt.After(now)
}
