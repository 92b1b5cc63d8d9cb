package promos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/db/models"
)

// Repository persists promo codes and per-user redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.PromoCode) error
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string, now time.Time) (int64, error)
	HasRedemption(ctx context.Context, promoID, userID uuid.UUID) (bool, error)
	CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.PromoCode) error {
	return r.db.WithContext(ctx).Create(promo).Error
}

// FindByCode returns (nil, nil) when the code does not exist.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage consumes one use only while the code is still redeemable and
// returns the number of rows updated (0 or 1).
func (r *repository) IncrementUsage(ctx context.Context, code string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("code = ? AND is_active = ? AND expires_at > ?", code, true, now).
		Where("(usage_limit IS NULL OR used_count < usage_limit)").
		Update("used_count", gorm.Expr("used_count + 1"))
	return res.RowsAffected, res.Error
}

func (r *repository) HasRedemption(ctx context.Context, promoID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromoRedemption{}).
		Where("promo_code_id = ? AND user_id = ?", promoID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.PromoRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}
