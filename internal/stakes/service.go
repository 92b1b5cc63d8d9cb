package stakes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/activity"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/internal/promos"
	"github.com/oddspool/oddspool-backend/internal/wallets"
	"github.com/oddspool/oddspool-backend/pkg/config"
	dbpkg "github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
	"github.com/oddspool/oddspool-backend/pkg/outbox/payloads"
	"github.com/oddspool/oddspool-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type poolInvalidator interface {
	Invalidate(ctx context.Context, marketID uuid.UUID)
}

// Service places and lists stakes.
type Service interface {
	PlaceStake(ctx context.Context, input PlaceStakeInput) (*PlaceStakeResult, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*StakePage, error)
}

// StakePage is one page of a user's stake history.
type StakePage struct {
	Stakes     []models.Stake
	NextCursor string
}

// PlaceStakeInput is a user's request to stake Amount minor units on Side.
type PlaceStakeInput struct {
	UserID    uuid.UUID
	MarketID  uuid.UUID
	Side      enums.Outcome
	Amount    int64
	PromoCode string
}

// PlaceStakeResult is the committed stake with its frozen price.
type PlaceStakeResult struct {
	Stake   models.Stake
	Payout  pricing.PayoutQuote
	Balance int64
	Pool    pricing.Pool
}

// ServiceParams bundles the dependencies required to build a stake service.
type ServiceParams struct {
	Tx        txRunner
	Markets   markets.Repository
	Wallets   wallets.Repository
	Stakes    Repository
	Promos    promos.Service
	Activity  activity.Service
	Outbox    outboxPublisher
	Engine    *pricing.Engine
	Limits    config.StakesConfig
	PoolCache poolInvalidator
	Metrics   *metrics.StakeMetrics
	Logger    *logger.Logger
	Clock     func() time.Time
}

type service struct {
	tx       txRunner
	markets  markets.Repository
	wallets  wallets.Repository
	stakes   Repository
	promos   promos.Service
	activity activity.Service
	outbox   outboxPublisher
	engine   *pricing.Engine
	limits   config.StakesConfig
	cache    poolInvalidator
	metrics  *metrics.StakeMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the stake placement service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("market repository required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Stakes == nil {
		return nil, fmt.Errorf("stake repository required")
	}
	if params.Promos == nil {
		return nil, fmt.Errorf("promo service required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if err := params.Limits.Validate(); err != nil {
		return nil, err
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:       params.Tx,
		markets:  params.Markets,
		wallets:  params.Wallets,
		stakes:   params.Stakes,
		promos:   params.Promos,
		activity: params.Activity,
		outbox:   params.Outbox,
		engine:   params.Engine,
		limits:   params.Limits,
		cache:    params.PoolCache,
		metrics:  params.Metrics,
		logg:     logg,
		now:      clock,
	}, nil
}

func (s *service) PlaceStake(ctx context.Context, input PlaceStakeInput) (*PlaceStakeResult, error) {
	started := time.Now()
	result, err := s.placeStake(ctx, input)
	if err != nil {
		s.metrics.ObservePlacement(string(pkgerrors.CodeOf(err)), time.Since(started))
		return nil, err
	}
	s.metrics.ObservePlacement("ok", time.Since(started))
	s.metrics.AddStaked(string(input.Side), input.Amount)
	return result, nil
}

func (s *service) placeStake(ctx context.Context, input PlaceStakeInput) (*PlaceStakeResult, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":   input.UserID.String(),
		"market_id": input.MarketID.String(),
	})

	var result *PlaceStakeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		marketRepo := s.markets.WithTx(tx)
		walletRepo := s.wallets.WithTx(tx)
		stakeRepo := s.stakes.WithTx(tx)

		market, err := marketRepo.FindByIDForUpdate(ctx, input.MarketID)
		if err != nil {
			return err
		}
		if !market.IsOpenAt(s.now()) {
			return pkgerrors.New(pkgerrors.CodeMarketNotOpen, "market is not accepting stakes").
				WithDetails(map[string]any{
					"market_id": market.ID.String(),
					"status":    market.Status,
					"closes_at": market.ClosesAt,
				})
		}

		wallet, err := walletRepo.FindByUserIDForUpdate(ctx, input.UserID)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		var balance int64
		if wallet != nil {
			balance = wallet.Balance
		}
		if balance < input.Amount {
			return insufficientBalance(balance, input.Amount)
		}

		var promo *pricing.Promo
		if input.PromoCode != "" {
			code, err := s.promos.Validate(ctx, tx, input.PromoCode)
			if err != nil {
				return err
			}
			promo = &pricing.Promo{Code: code.Code, DiscountPercent: code.DiscountPercent}
		}

		pool := markets.PoolOf(market)
		odds, err := s.engine.CalculateOdds(pool, input.Side, 0)
		if err != nil {
			return err
		}
		payout, err := s.engine.CalculatePayout(input.Amount, odds, promo)
		if err != nil {
			return err
		}

		if err := walletRepo.Debit(ctx, input.UserID, input.Amount); err != nil {
			return err
		}

		stake := &models.Stake{
			UserID:          input.UserID,
			MarketID:        market.ID,
			Side:            input.Side,
			Amount:          input.Amount,
			OddsAtPlacement: odds,
			PotentialPayout: payout.FinalPayout,
			Status:          enums.StakeStatusActive,
		}
		if promo != nil {
			stake.PromoCode = &promo.Code
			stake.PromoDiscountPercent = promo.DiscountPercent
		}
		if err := stakeRepo.Create(ctx, stake); err != nil {
			return err
		}
		if err := marketRepo.IncrementPool(ctx, market.ID, input.Side, input.Amount); err != nil {
			return err
		}
		if input.Side == enums.OutcomeYes {
			pool.Yes += input.Amount
		} else {
			pool.No += input.Amount
		}

		var redeemed *models.PromoCode
		if promo != nil {
			redeemed, err = s.promos.RedeemForUser(ctx, tx, promos.RedeemInput{
				Code:    promo.Code,
				UserID:  input.UserID,
				StakeID: stake.ID,
			})
			if err != nil {
				return err
			}
		}

		s.activity.RecordBestEffort(ctx, tx, activity.RecordInput{
			UserID:   input.UserID,
			Action:   enums.ActivityStakePlaced,
			Metadata: activityMetadata(stake),
		})

		if err := s.emitPlaced(ctx, tx, stake, pool, redeemed); err != nil {
			return err
		}

		updated, err := walletRepo.FindByUserID(ctx, input.UserID)
		if err != nil {
			return err
		}

		result = &PlaceStakeResult{
			Stake:   *stake,
			Payout:  payout,
			Balance: updated.Balance,
			Pool:    pool,
		}
		return nil
	})
	if err != nil {
		err = dbpkg.Classify(err, "place stake")
		if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable {
			s.logg.Error(ctx, "stake placement failed", err)
		} else {
			s.logg.Info(s.logg.WithField(ctx, "error_code", pkgerrors.CodeOf(err)), "stake placement rejected")
		}
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, input.MarketID)
	}
	s.logg.Info(s.logg.WithStakeID(ctx, result.Stake.ID.String()), "stake placed")
	return result, nil
}

func (s *service) validateInput(input PlaceStakeInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required").
			WithDetails(map[string]any{"field": "user_id"})
	}
	if input.MarketID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "market id required").
			WithDetails(map[string]any{"field": "market_id"})
	}
	if !input.Side.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "side must be yes or no").
			WithDetails(map[string]any{"field": "side"})
	}
	if input.Amount < s.limits.MinStake || input.Amount > s.limits.MaxStake {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount outside allowed stake range").
			WithDetails(map[string]any{
				"field": "amount",
				"min":   s.limits.MinStake,
				"max":   s.limits.MaxStake,
			})
	}
	return nil
}

func (s *service) emitPlaced(ctx context.Context, tx *gorm.DB, stake *models.Stake, pool pricing.Pool, redeemed *models.PromoCode) error {
	actor := &outbox.ActorRef{UserID: stake.UserID, Role: "user"}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStakePlaced,
		AggregateType: enums.AggregateStake,
		AggregateID:   stake.ID,
		Actor:         actor,
		Data: payloads.StakePlacedEvent{
			StakeID:         stake.ID,
			MarketID:        stake.MarketID,
			UserID:          stake.UserID,
			Side:            stake.Side,
			Amount:          stake.Amount,
			Odds:            stake.OddsAtPlacement,
			PotentialPayout: stake.PotentialPayout,
			PromoCode:       stake.PromoCode,
			YesStakeTotal:   pool.Yes,
			NoStakeTotal:    pool.No,
		},
	}); err != nil {
		return err
	}
	if redeemed == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPromoRedeemed,
		AggregateType: enums.AggregatePromoCode,
		AggregateID:   redeemed.ID,
		Actor:         actor,
		Data: payloads.PromoRedeemedEvent{
			PromoCodeID: redeemed.ID,
			Code:        redeemed.Code,
			UserID:      stake.UserID,
			StakeID:     stake.ID,
			UsedCount:   redeemed.UsedCount,
		},
	})
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*StakePage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	stakes, next, err := s.stakes.ListByUserID(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, dbpkg.Classify(err, "list stakes")
	}
	page := &StakePage{Stakes: stakes}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func insufficientBalance(balance, required int64) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient balance").
		WithDetails(map[string]any{
			"balance":  balance,
			"required": required,
		})
}

func activityMetadata(stake *models.Stake) map[string]any {
	meta := map[string]any{
		"stake_id":         stake.ID.String(),
		"market_id":        stake.MarketID.String(),
		"side":             stake.Side,
		"amount":           stake.Amount,
		"odds":             stake.OddsAtPlacement.StringFixed(2),
		"potential_payout": stake.PotentialPayout,
	}
	if stake.PromoCode != nil {
		meta["promo_code"] = *stake.PromoCode
		meta["promo_discount_percent"] = stake.PromoDiscountPercent.StringFixed(2)
	}
	return meta
}
