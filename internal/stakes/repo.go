package stakes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/pagination"
)

// Repository persists stakes. Frozen pricing columns are written once on insert.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, stake *models.Stake) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stake, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Stake, *pagination.Cursor, error)
	ListActiveByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.Stake, error)
	MarkSettled(ctx context.Context, id uuid.UUID, status enums.StakeStatus, payout int64, at time.Time) (bool, error)
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

func (r *repository) Create(ctx context.Context, stake *models.Stake) error {
	return r.db.WithContext(ctx).Create(stake).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stake, error) {
	var stake models.Stake
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&stake).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stake not found")
		}
		return nil, err
	}
	return &stake, nil
}

// ListByUserID pages a user's stakes newest first. The returned cursor is nil on the last page.
func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Stake, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Stake{}).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var stakes []models.Stake
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&stakes).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Split(stakes, limit, func(s models.Stake) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

func (r *repository) ListActiveByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.Stake, error) {
	var stakes []models.Stake
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, enums.StakeStatusActive).
		Order("created_at ASC").
		Find(&stakes).Error
	return stakes, err
}

// MarkSettled moves an active stake to a terminal status. It reports false when
// the stake was already settled, which keeps settlement idempotent per stake.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, status enums.StakeStatus, payout int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Where("id = ? AND status = ?", id, enums.StakeStatusActive).
		Updates(map[string]any{
			"status":     status,
			"payout":     payout,
			"settled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
