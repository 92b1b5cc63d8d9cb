package markets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/pricing"
	dbpkg "github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

// Repository manages persistence for markets and their running pool totals.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, market *models.Market) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error)
	PoolSums(ctx context.Context, id uuid.UUID) (pricing.Pool, error)
	ComputePoolSums(ctx context.Context, id uuid.UUID) (pricing.Pool, error)
	IncrementPool(ctx context.Context, id uuid.UUID, side enums.Outcome, amount int64) error
	SetPoolTotals(ctx context.Context, id uuid.UUID, pool pricing.Pool) error
	ListResolvedWithActiveStakes(ctx context.Context, limit int) ([]models.Market, error)
	ListIDsByStatus(ctx context.Context, statuses []enums.MarketStatus, limit int) ([]uuid.UUID, error)
	Settle(ctx context.Context, id uuid.UUID, outcome enums.Outcome, at time.Time) error
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a market repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, market *models.Market) error {
	return r.db.WithContext(ctx).Create(market).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate row-locks the market so pool totals stay consistent with the stake written after it.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.find(dbpkg.ForUpdate(r.db.WithContext(ctx)), id)
}

func (r *repository) find(q *gorm.DB, id uuid.UUID) (*models.Market, error) {
	var market models.Market
	if err := q.Where("id = ?", id).First(&market).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market not found").
				WithDetails(map[string]any{"market_id": id.String()})
		}
		return nil, err
	}
	return &market, nil
}

// PoolSums reads the persisted running totals.
func (r *repository) PoolSums(ctx context.Context, id uuid.UUID) (pricing.Pool, error) {
	market, err := r.FindByID(ctx, id)
	if err != nil {
		return pricing.Pool{}, err
	}
	return PoolOf(market), nil
}

// ComputePoolSums aggregates active stakes directly; used to audit the running totals.
func (r *repository) ComputePoolSums(ctx context.Context, id uuid.UUID) (pricing.Pool, error) {
	var rows []struct {
		Side  enums.Outcome
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Stake{}).
		Select("side, COALESCE(SUM(amount), 0) AS total").
		Where("market_id = ? AND status = ?", id, enums.StakeStatusActive).
		Group("side").
		Scan(&rows).Error
	if err != nil {
		return pricing.Pool{}, err
	}
	var pool pricing.Pool
	for _, row := range rows {
		switch row.Side {
		case enums.OutcomeYes:
			pool.Yes = row.Total
		case enums.OutcomeNo:
			pool.No = row.Total
		}
	}
	return pool, nil
}

func (r *repository) IncrementPool(ctx context.Context, id uuid.UUID, side enums.Outcome, amount int64) error {
	column := "yes_stake_total"
	if side == enums.OutcomeNo {
		column = "no_stake_total"
	}
	res := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
	}
	return nil
}

func (r *repository) SetPoolTotals(ctx context.Context, id uuid.UUID, pool pricing.Pool) error {
	return r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"yes_stake_total": pool.Yes,
			"no_stake_total":  pool.No,
		}).Error
}

// ListResolvedWithActiveStakes returns settled or cancelled markets that still have unprocessed stakes.
func (r *repository) ListResolvedWithActiveStakes(ctx context.Context, limit int) ([]models.Market, error) {
	if limit <= 0 {
		limit = 25
	}
	var markets []models.Market
	err := r.db.WithContext(ctx).
		Where("(status = ? AND winning_outcome IS NOT NULL) OR status = ?", enums.MarketStatusSettled, enums.MarketStatusCancelled).
		Where("EXISTS (SELECT 1 FROM stakes WHERE stakes.market_id = markets.id AND stakes.status = ?)", enums.StakeStatusActive).
		Order("updated_at ASC").
		Limit(limit).
		Find(&markets).Error
	return markets, err
}

func (r *repository) ListIDsByStatus(ctx context.Context, statuses []enums.MarketStatus, limit int) ([]uuid.UUID, error) {
	q := r.db.WithContext(ctx).Model(&models.Market{}).Where("status IN ?", statuses).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ids []uuid.UUID
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Settle records the winning outcome. Only open or closed markets can be settled.
func (r *repository) Settle(ctx context.Context, id uuid.UUID, outcome enums.Outcome, at time.Time) error {
	return r.resolve(ctx, id, map[string]any{
		"status":          enums.MarketStatusSettled,
		"winning_outcome": outcome,
		"settled_at":      at,
	})
}

// Cancel voids the market; its active stakes are refunded by settlement.
func (r *repository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.resolve(ctx, id, map[string]any{
		"status":     enums.MarketStatusCancelled,
		"settled_at": at,
	})
}

func (r *repository) resolve(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ? AND status IN ?", id, []enums.MarketStatus{enums.MarketStatusOpen, enums.MarketStatusClosed}).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "market is already resolved")
	}
	return nil
}

// PoolOf extracts the running totals from a market row.
func PoolOf(market *models.Market) pricing.Pool {
	if market == nil {
		return pricing.Pool{}
	}
	return pricing.Pool{Yes: market.YesStakeTotal, No: market.NoStakeTotal}
}
