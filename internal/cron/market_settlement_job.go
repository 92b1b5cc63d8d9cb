package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/oddspool/oddspool-backend/internal/settlement"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/logger"
)

const defaultSettlementBatch = 25

type resolvedMarketLister interface {
	ListResolvedWithActiveStakes(ctx context.Context, limit int) ([]models.Market, error)
}

type marketSettler interface {
	SettleMarket(ctx context.Context, marketID uuid.UUID) (*settlement.Result, error)
}

type MarketSettlementJobParams struct {
	Logger     *logger.Logger
	Markets    resolvedMarketLister
	Settlement marketSettler
	BatchSize  int
}

// NewMarketSettlementJob finishes settlement for resolved markets whose stakes
// were not all processed, e.g. after a crash between resolution and payout.
func NewMarketSettlementJob(params MarketSettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("markets repository required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSettlementBatch
	}
	return &marketSettlementJob{
		logg:       params.Logger,
		markets:    params.Markets,
		settlement: params.Settlement,
		batch:      batch,
	}, nil
}

type marketSettlementJob struct {
	logg       *logger.Logger
	markets    resolvedMarketLister
	settlement marketSettler
	batch      int
}

func (j *marketSettlementJob) Name() string { return "market-settlement" }

func (j *marketSettlementJob) Run(ctx context.Context) error {
	pending, err := j.markets.ListResolvedWithActiveStakes(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list resolved markets: %w", err)
	}

	var errs error
	for i := range pending {
		marketID := pending[i].ID
		res, err := j.settlement.SettleMarket(ctx, marketID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("market %s: %w", marketID, err))
			continue
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"market_id":      marketID.String(),
			"winners":        res.Winners,
			"losers":         res.Losers,
			"refunded":       res.Refunded,
			"total_paid_out": res.TotalPaidOut,
		})
		j.logg.Info(logCtx, "market settlement completed by sweep")
	}
	return errs
}
