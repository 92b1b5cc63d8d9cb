package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oddspool/oddspool-backend/api/routes"
	"github.com/oddspool/oddspool-backend/internal/activity"
	"github.com/oddspool/oddspool-backend/internal/bootstrap"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/internal/promos"
	"github.com/oddspool/oddspool-backend/internal/settlement"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/internal/wallets"
	"github.com/oddspool/oddspool-backend/pkg/env"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
)

const shutdownTimeout = 15 * time.Second

func main() {
	rt, err := bootstrap.Start(context.Background(), "api")
	if err != nil {
		rt.Fail(context.Background(), "api failed to start", err)
	}
	defer rt.Close()
	cfg, logg, dbClient, redisClient := rt.Config, rt.Logger, rt.DB, rt.Redis

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stakeMetrics := metrics.NewStakeMetrics(registry)

	engine, err := pricing.NewEngine(pricing.ConfigFrom(cfg.Pricing))
	if err != nil {
		rt.Fail(context.Background(), "invalid pricing configuration", err)
	}

	conn := dbClient.DB()
	marketRepo := markets.NewRepository(conn)
	stakeRepo := stakes.NewRepository(conn)
	walletRepo := wallets.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	promoSvc, err := promos.NewService(promos.NewRepository(conn), logg, stakeMetrics)
	if err != nil {
		rt.Fail(context.Background(), "failed to create promo service", err)
	}
	activitySvc, err := activity.NewService(activity.NewRepository(conn), logg, stakeMetrics)
	if err != nil {
		rt.Fail(context.Background(), "failed to create activity service", err)
	}

	var poolCache markets.PoolCache
	if cfg.FeatureFlags.QuoteCache {
		poolCache = markets.NewRedisPoolCache(redisClient, cfg.Cache.QuoteTTL)
	}
	quoteSvc, err := markets.NewQuoteService(marketRepo, engine, promoSvc, poolCache, logg)
	if err != nil {
		rt.Fail(context.Background(), "failed to create quote service", err)
	}

	stakeSvc, err := stakes.NewService(stakes.ServiceParams{
		Tx:        dbClient,
		Markets:   marketRepo,
		Wallets:   walletRepo,
		Stakes:    stakeRepo,
		Promos:    promoSvc,
		Activity:  activitySvc,
		Outbox:    outboxSvc,
		Engine:    engine,
		Limits:    cfg.Stakes,
		PoolCache: quoteSvc,
		Metrics:   stakeMetrics,
		Logger:    logg,
	})
	if err != nil {
		rt.Fail(context.Background(), "failed to create stake service", err)
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Markets:  marketRepo,
		Stakes:   stakeRepo,
		Wallets:  walletRepo,
		Activity: activitySvc,
		Outbox:   outboxSvc,
		Metrics:  stakeMetrics,
		Logger:   logg,
	})
	if err != nil {
		rt.Fail(context.Background(), "failed to create settlement service", err)
	}

	handler, err := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Idempotent: redisClient,
		Gatherer:   registry,
		Quotes:     quoteSvc,
		Stakes:     stakeSvc,
		Promos:     promoSvc,
		Settlement: settlementSvc,
		Activity:   activitySvc,
	})
	if err != nil {
		rt.Fail(context.Background(), "failed to build router", err)
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	ctx := logg.WithField(rt.BaseContext(context.Background()), "addr", addr)
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rt.Fail(ctx, "api server stopped unexpectedly", err)
	}
	logg.Info(ctx, "api server stopped")
}
