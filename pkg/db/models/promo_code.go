package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromoCode is a discount applied to a stake payout. UsedCount only ever increases.
type PromoCode struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code            string          `gorm:"column:code;not null;uniqueIndex:ux_promo_codes_code"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:decimal(5,2);not null"`
	UsageLimit      *int64          `gorm:"column:usage_limit"`
	UsedCount       int64           `gorm:"column:used_count;not null;default:0"`
	ExpiresAt       time.Time       `gorm:"column:expires_at;not null"`
	IsActive        bool            `gorm:"column:is_active;not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PromoCode) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PromoRedemption records a single user's use of a code; one row per (code, user).
type PromoRedemption struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromoCodeID uuid.UUID `gorm:"column:promo_code_id;type:uuid;not null;uniqueIndex:ux_promo_redemptions_code_user"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_promo_redemptions_code_user"`
	StakeID     uuid.UUID `gorm:"column:stake_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *PromoRedemption) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
