package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

// Repository owns wallet balance reads and conditional mutations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wallet *models.Wallet) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int64) error
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error
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

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.find(r.db.WithContext(ctx), userID)
}

func (r *repository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.find(dbpkg.ForUpdate(r.db.WithContext(ctx)), userID)
}

func (r *repository) find(q *gorm.DB, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := q.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, err
	}
	return &wallet, nil
}

// Debit subtracts amount only if the balance covers it; the check and write are one statement.
func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance").
			WithDetails(map[string]any{"required": amount})
	}
	return nil
}

func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	if amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be non-negative")
	}
	if amount == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return nil
}
