package promos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
)

const redemptionConstraint = "ux_promo_redemptions_code_user"

var rejectMessages = map[enums.PromoRejectReason]string{
	enums.PromoRejectNotFound:    "promo code not found",
	enums.PromoRejectInactive:    "promo code is not active",
	enums.PromoRejectExpired:     "promo code has expired",
	enums.PromoRejectExhausted:   "promo code usage limit reached",
	enums.PromoRejectAlreadyUsed: "promo code already used",
}

// RedeemInput ties a redemption to the user and stake it was applied to.
type RedeemInput struct {
	Code    string
	UserID  uuid.UUID
	StakeID uuid.UUID
}

// Service validates and redeems promo codes. A nil tx runs against the base connection.
type Service interface {
	Validate(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error)
	RedeemForUser(ctx context.Context, tx *gorm.DB, input RedeemInput) (*models.PromoCode, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.StakeMetrics
	now     func() time.Time
}

func NewService(repo Repository, logg *logger.Logger, m *metrics.StakeMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promo repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    repo,
		logg:    logg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Canonical normalises user input to the stored form.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Validate(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error) {
	code = Canonical(code)
	if code == "" {
		return nil, reject(enums.PromoRejectNotFound, code)
	}
	promo, err := s.repo.WithTx(tx).FindByCode(ctx, code)
	if err != nil {
		return nil, dbpkg.Classify(err, "load promo code")
	}
	if promo == nil {
		return nil, reject(enums.PromoRejectNotFound, code)
	}
	if reason, ok := rejectReasonAt(promo, s.now()); ok {
		return nil, reject(reason, code)
	}
	return promo, nil
}

// Redeem consumes one use of the code. The validity check and the increment are a single statement.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error) {
	promo, err := s.redeem(ctx, s.repo.WithTx(tx), Canonical(code))
	s.observe(err)
	return promo, err
}

func (s *service) RedeemForUser(ctx context.Context, tx *gorm.DB, input RedeemInput) (*models.PromoCode, error) {
	promo, err := s.redeemForUser(ctx, s.repo.WithTx(tx), input)
	s.observe(err)
	return promo, err
}

func (s *service) redeemForUser(ctx context.Context, repo Repository, input RedeemInput) (*models.PromoCode, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	code := Canonical(input.Code)
	existing, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, dbpkg.Classify(err, "load promo code")
	}
	if existing == nil {
		return nil, reject(enums.PromoRejectNotFound, code)
	}

	used, err := repo.HasRedemption(ctx, existing.ID, input.UserID)
	if err != nil {
		return nil, dbpkg.Classify(err, "check promo redemption")
	}
	if used {
		return nil, reject(enums.PromoRejectAlreadyUsed, code)
	}

	promo, err := s.redeem(ctx, repo, code)
	if err != nil {
		return nil, err
	}

	if err := repo.CreateRedemption(ctx, &models.PromoRedemption{
		PromoCodeID: promo.ID,
		UserID:      input.UserID,
		StakeID:     input.StakeID,
	}); err != nil {
		if dbpkg.IsUniqueViolation(err, redemptionConstraint) {
			return nil, reject(enums.PromoRejectAlreadyUsed, code)
		}
		return nil, dbpkg.Classify(err, "record promo redemption")
	}
	return promo, nil
}

func (s *service) redeem(ctx context.Context, repo Repository, code string) (*models.PromoCode, error) {
	if code == "" {
		return nil, reject(enums.PromoRejectNotFound, code)
	}
	now := s.now()
	rows, err := repo.IncrementUsage(ctx, code, now)
	if err != nil {
		return nil, dbpkg.Classify(err, "redeem promo code")
	}

	promo, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, dbpkg.Classify(err, "load promo code")
	}
	if rows == 1 {
		return promo, nil
	}

	if promo == nil {
		return nil, reject(enums.PromoRejectNotFound, code)
	}
	if reason, ok := rejectReasonAt(promo, now); ok {
		return nil, reject(reason, code)
	}
	// the predicate failed but the re-read looks valid: state moved underneath us
	return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "promo redemption conflicted with a concurrent update")
}

func (s *service) observe(err error) {
	if err == nil {
		s.metrics.IncPromoRedemption("ok")
		return
	}
	if reason, ok := RejectReason(err); ok {
		s.metrics.IncPromoRedemption(string(reason))
		return
	}
	s.metrics.IncPromoRedemption(string(pkgerrors.CodeOf(err)))
}

// rejectReasonAt returns the first applicable reason the code cannot be used at now.
func rejectReasonAt(promo *models.PromoCode, now time.Time) (enums.PromoRejectReason, bool) {
	switch {
	case !promo.IsActive:
		return enums.PromoRejectInactive, true
	case !promo.ExpiresAt.After(now):
		return enums.PromoRejectExpired, true
	case promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit:
		return enums.PromoRejectExhausted, true
	}
	return "", false
}

func reject(reason enums.PromoRejectReason, code string) error {
	return pkgerrors.New(pkgerrors.CodePromoInvalid, rejectMessages[reason]).
		WithDetails(map[string]any{"reason": reason, "code": code})
}

// RejectReason extracts the promo rejection reason from err, if any.
func RejectReason(err error) (enums.PromoRejectReason, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromoInvalid {
		return "", false
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return "", false
	}
	reason, ok := details["reason"].(enums.PromoRejectReason)
	return reason, ok
}
