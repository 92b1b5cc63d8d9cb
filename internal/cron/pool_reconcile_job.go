package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
	"github.com/oddspool/oddspool-backend/pkg/outbox/payloads"
)

type poolInvalidator interface {
	Invalidate(ctx context.Context, marketID uuid.UUID)
}

type PoolReconcileJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Markets   markets.Repository
	Outbox    outboxEmitter
	PoolCache poolInvalidator
	Metrics   *metrics.StakeMetrics
	BatchSize int
}

// NewPoolReconcileJob compares each unresolved market's running pool totals
// with the sums of its active stakes and repairs the stored totals on drift.
func NewPoolReconcileJob(params PoolReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("markets repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &poolReconcileJob{
		logg:    params.Logger,
		db:      params.DB,
		markets: params.Markets,
		outbox:  params.Outbox,
		cache:   params.PoolCache,
		metrics: params.Metrics,
		batch:   params.BatchSize,
	}, nil
}

type poolReconcileJob struct {
	logg    *logger.Logger
	db      txRunner
	markets markets.Repository
	outbox  outboxEmitter
	cache   poolInvalidator
	metrics *metrics.StakeMetrics
	batch   int
}

func (j *poolReconcileJob) Name() string { return "pool-reconcile" }

func (j *poolReconcileJob) Run(ctx context.Context) error {
	ids, err := j.markets.ListIDsByStatus(ctx, []enums.MarketStatus{enums.MarketStatusOpen, enums.MarketStatusClosed}, j.batch)
	if err != nil {
		return fmt.Errorf("list markets: %w", err)
	}
	var errs error
	for _, id := range ids {
		drifted, err := j.reconcile(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("market %s: %w", id, err))
			continue
		}
		if drifted && j.cache != nil {
			j.cache.Invalidate(ctx, id)
		}
	}
	return errs
}

// reconcile holds the market row lock so concurrent placements cannot move the
// totals between the read and the repair.
func (j *poolReconcileJob) reconcile(ctx context.Context, marketID uuid.UUID) (bool, error) {
	var drifted bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.markets.WithTx(tx)
		market, err := repo.FindByIDForUpdate(ctx, marketID)
		if err != nil {
			return err
		}
		stored := markets.PoolOf(market)
		computed, err := repo.ComputePoolSums(ctx, marketID)
		if err != nil {
			return err
		}
		if stored == computed {
			return nil
		}
		drifted = true
		if err := repo.SetPoolTotals(ctx, marketID, computed); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPoolDriftDetected,
			AggregateType: enums.AggregateMarket,
			AggregateID:   marketID,
			Data: payloads.PoolDriftDetectedEvent{
				MarketID:    marketID,
				StoredYes:   stored.Yes,
				StoredNo:    stored.No,
				ComputedYes: computed.Yes,
				ComputedNo:  computed.No,
			},
		})
	})
	if err != nil {
		return false, err
	}
	if drifted {
		j.metrics.IncPoolDrift()
		logCtx := j.logg.WithField(ctx, "market_id", marketID.String())
		j.logg.Warn(logCtx, "pool totals drifted from stake sums; repaired")
	}
	return drifted, nil
}
