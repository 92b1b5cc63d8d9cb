package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/oddspool/oddspool-backend/internal/activity"
	"github.com/oddspool/oddspool-backend/internal/bootstrap"
	"github.com/oddspool/oddspool-backend/internal/cron"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/settlement"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/internal/wallets"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
)

const lockName = "cron-worker:%s"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "cron-worker")
	if err != nil {
		rt.Fail(ctx, "cron worker failed to start", err)
	}
	defer rt.Close()
	cfg, logg, dbClient, redisClient := rt.Config, rt.Logger, rt.DB, rt.Redis

	cronMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	stakeMetrics := metrics.NewStakeMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	marketRepo := markets.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)

	activitySvc, err := activity.NewService(activity.NewRepository(conn), logg, stakeMetrics)
	if err != nil {
		rt.Fail(ctx, "failed to create activity service", err)
	}
	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Markets:  marketRepo,
		Stakes:   stakes.NewRepository(conn),
		Wallets:  wallets.NewRepository(conn),
		Activity: activitySvc,
		Outbox:   outboxSvc,
		Metrics:  stakeMetrics,
		Logger:   logg,
	})
	if err != nil {
		rt.Fail(ctx, "failed to create settlement service", err)
	}

	settlementJob, err := cron.NewMarketSettlementJob(cron.MarketSettlementJobParams{
		Logger:     logg,
		Markets:    marketRepo,
		Settlement: settlementSvc,
		BatchSize:  cfg.Settlement.BatchSize,
	})
	if err != nil {
		rt.Fail(ctx, "failed to create settlement job", err)
	}
	reconcileJob, err := cron.NewPoolReconcileJob(cron.PoolReconcileJobParams{
		Logger:    logg,
		DB:        dbClient,
		Markets:   marketRepo,
		Outbox:    outboxSvc,
		PoolCache: redisPoolInvalidator{cache: markets.NewRedisPoolCache(redisClient, cfg.Cache.QuoteTTL)},
		Metrics:   stakeMetrics,
	})
	if err != nil {
		rt.Fail(ctx, "failed to create pool reconcile job", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Repository:   outboxRepo,
		Retention:    cfg.Outbox.Retention,
		BatchSize:    cfg.Outbox.PurgeBatchSize,
		DeadAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		rt.Fail(ctx, "failed to create outbox retention job", err)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(fmt.Sprintf(lockName, cfg.App.Env)), 0)
	if err != nil {
		rt.Fail(ctx, "failed to create cron lock", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(settlementJob, reconcileJob, retentionJob),
		Lock:       lock,
		Metrics:    cronMetrics,
		Interval:   cfg.Settlement.Interval,
		JobTimeout: cfg.Settlement.Interval,
	})
	if err != nil {
		rt.Fail(ctx, "failed to create cron service", err)
	}

	ctx = rt.BaseContext(ctx)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fail(ctx, "cron worker stopped unexpectedly", err)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// redisPoolInvalidator drops quote-cache entries after a pool repair. A failed delete expires with the cache TTL.
type redisPoolInvalidator struct {
	cache markets.PoolCache
}

func (r redisPoolInvalidator) Invalidate(ctx context.Context, marketID uuid.UUID) {
	_ = r.cache.Invalidate(ctx, marketID)
}
