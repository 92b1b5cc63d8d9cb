package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/activity"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/internal/wallets"
	dbpkg "github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
	"github.com/oddspool/oddspool-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service resolves markets and pays out their stakes.
type Service interface {
	ResolveMarket(ctx context.Context, marketID uuid.UUID, outcome enums.Outcome) (*Result, error)
	CancelMarket(ctx context.Context, marketID uuid.UUID) (*Result, error)
	SettleMarket(ctx context.Context, marketID uuid.UUID) (*Result, error)
}

// Result summarises one settlement pass over a market.
type Result struct {
	MarketID     uuid.UUID          `json:"market_id"`
	Status       enums.MarketStatus `json:"status"`
	Winners      int                `json:"winners"`
	Losers       int                `json:"losers"`
	Refunded     int                `json:"refunded"`
	TotalPaidOut int64              `json:"total_paid_out"`
}

// ServiceParams bundles the dependencies required to build a settlement service.
type ServiceParams struct {
	Tx       txRunner
	Markets  markets.Repository
	Stakes   stakes.Repository
	Wallets  wallets.Repository
	Activity activity.Service
	Outbox   outboxPublisher
	Metrics  *metrics.StakeMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	tx       txRunner
	markets  markets.Repository
	stakes   stakes.Repository
	wallets  wallets.Repository
	activity activity.Service
	outbox   outboxPublisher
	metrics  *metrics.StakeMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("market repository required")
	}
	if params.Stakes == nil {
		return nil, fmt.Errorf("stake repository required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Activity == nil {
		return nil, fmt.Errorf("activity service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
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
		stakes:   params.Stakes,
		wallets:  params.Wallets,
		activity: params.Activity,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     logg,
		now:      clock,
	}, nil
}

// ResolveMarket records the winning outcome and settles the market's stakes.
func (s *service) ResolveMarket(ctx context.Context, marketID uuid.UUID, outcome enums.Outcome) (*Result, error) {
	if !outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be yes or no").
			WithDetails(map[string]any{"field": "outcome"})
	}
	if err := s.markets.Settle(ctx, marketID, outcome, s.now()); err != nil {
		return nil, dbpkg.Classify(err, "resolve market")
	}
	return s.SettleMarket(ctx, marketID)
}

// CancelMarket voids the market and refunds every active stake.
func (s *service) CancelMarket(ctx context.Context, marketID uuid.UUID) (*Result, error) {
	if err := s.markets.Cancel(ctx, marketID, s.now()); err != nil {
		return nil, dbpkg.Classify(err, "cancel market")
	}
	return s.SettleMarket(ctx, marketID)
}

// SettleMarket pays out the active stakes of a resolved market in one
// transaction. Stakes that are no longer active are skipped, so reruns are safe.
func (s *service) SettleMarket(ctx context.Context, marketID uuid.UUID) (*Result, error) {
	ctx = s.logg.WithMarketID(ctx, marketID.String())

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		market, err := s.markets.WithTx(tx).FindByIDForUpdate(ctx, marketID)
		if err != nil {
			return err
		}
		if !isResolved(market) {
			return pkgerrors.New(pkgerrors.CodeConflict, "market is not resolved").
				WithDetails(map[string]any{"status": market.Status})
		}

		active, err := s.stakes.WithTx(tx).ListActiveByMarketID(ctx, marketID)
		if err != nil {
			return err
		}

		result = &Result{MarketID: marketID, Status: market.Status}
		at := s.now()
		for i := range active {
			if err := s.settleStake(ctx, tx, market, &active[i], at, result); err != nil {
				return err
			}
		}

		if market.Status != enums.MarketStatusSettled {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMarketSettled,
			AggregateType: enums.AggregateMarket,
			AggregateID:   marketID,
			Data: payloads.MarketSettledEvent{
				MarketID:       marketID,
				WinningOutcome: *market.WinningOutcome,
				Winners:        result.Winners,
				Losers:         result.Losers,
				TotalPaidOut:   result.TotalPaidOut,
				SettledAt:      at,
			},
		})
	})
	if err != nil {
		err = dbpkg.Classify(err, "settle market")
		s.logg.Error(ctx, "market settlement failed", err)
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"winners":        result.Winners,
		"losers":         result.Losers,
		"refunded":       result.Refunded,
		"total_paid_out": result.TotalPaidOut,
	}), "market settled")
	return result, nil
}

func (s *service) settleStake(ctx context.Context, tx *gorm.DB, market *models.Market, stake *models.Stake, at time.Time, result *Result) error {
	status, payout, action := outcomeFor(market, stake)

	updated, err := s.stakes.WithTx(tx).MarkSettled(ctx, stake.ID, status, payout, at)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}
	if payout > 0 {
		if err := s.wallets.WithTx(tx).Credit(ctx, stake.UserID, payout); err != nil {
			return err
		}
	}

	switch status {
	case enums.StakeStatusWon:
		result.Winners++
	case enums.StakeStatusLost:
		result.Losers++
	case enums.StakeStatusRefunded:
		result.Refunded++
	}
	result.TotalPaidOut += payout
	s.metrics.IncSettled(string(status), payout)

	s.activity.RecordBestEffort(ctx, tx, activity.RecordInput{
		UserID: stake.UserID,
		Action: action,
		Metadata: map[string]any{
			"stake_id":  stake.ID.String(),
			"market_id": stake.MarketID.String(),
			"payout":    payout,
		},
	})

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStakeSettled,
		AggregateType: enums.AggregateStake,
		AggregateID:   stake.ID,
		Actor:         &outbox.ActorRef{UserID: stake.UserID, Role: "user"},
		Data: payloads.StakeSettledEvent{
			StakeID:  stake.ID,
			MarketID: stake.MarketID,
			UserID:   stake.UserID,
			Status:   status,
			Payout:   payout,
		},
	})
}

// outcomeFor maps a stake onto its terminal status. Winners receive the payout
// frozen at placement; cancelled markets return the stake amount.
func outcomeFor(market *models.Market, stake *models.Stake) (enums.StakeStatus, int64, enums.ActivityAction) {
	if market.Status == enums.MarketStatusCancelled {
		return enums.StakeStatusRefunded, stake.Amount, enums.ActivityStakeRefunded
	}
	if stake.Side == *market.WinningOutcome {
		return enums.StakeStatusWon, stake.PotentialPayout, enums.ActivityStakeWon
	}
	return enums.StakeStatusLost, 0, enums.ActivityStakeLost
}

func isResolved(market *models.Market) bool {
	if market.Status == enums.MarketStatusCancelled {
		return true
	}
	return market.Status == enums.MarketStatusSettled && market.WinningOutcome != nil
}
