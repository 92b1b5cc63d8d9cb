package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/enums"
)

// Stake is a wager with its price frozen at placement. OddsAtPlacement and
// PotentialPayout are never rewritten after insert.
type Stake struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	MarketID             uuid.UUID         `gorm:"column:market_id;type:uuid;not null;index"`
	Side                 enums.Outcome     `gorm:"column:side;type:varchar(8);not null"`
	Amount               int64             `gorm:"column:amount;not null"`
	OddsAtPlacement      decimal.Decimal   `gorm:"column:odds_at_placement;type:decimal(10,2);not null"`
	PotentialPayout      int64             `gorm:"column:potential_payout;not null"`
	PromoCode            *string           `gorm:"column:promo_code"`
	PromoDiscountPercent decimal.Decimal   `gorm:"column:promo_discount_percent;type:decimal(5,2);not null;default:0"`
	Status               enums.StakeStatus `gorm:"column:status;type:varchar(16);not null;default:'active'"`
	Payout               *int64            `gorm:"column:payout"`
	SettledAt            *time.Time        `gorm:"column:settled_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Stake) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
