package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oddspool/oddspool-backend/internal/bootstrap"
	"github.com/oddspool/oddspool-backend/pkg/metrics"
	"github.com/oddspool/oddspool-backend/pkg/outbox"
	"github.com/oddspool/oddspool-backend/pkg/outbox/registry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "outbox-publisher")
	if err != nil {
		rt.Fail(ctx, "outbox publisher failed to start", err)
	}
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	repo := outbox.NewRepository(rt.DB.DB())
	eventRegistry, err := registry.NewEventRegistry(cfg.Outbox)
	if err != nil {
		rt.Fail(ctx, "failed to build event registry", err)
	}
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         rt.DB,
		Publisher:  rt.Redis,
		Repository: repo,
		Registry:   eventRegistry,
		Metrics:    metrics.NewStakeMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		rt.Fail(ctx, "failed to create outbox publisher", err)
	}

	ctx = logg.WithField(rt.BaseContext(ctx), "channel", cfg.Outbox.Channel)
	if pending, err := repo.CountPending(cfg.Outbox.MaxAttempts); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "failed to count pending outbox rows")
	} else {
		ctx = logg.WithField(ctx, "pending_at_start", pending)
	}
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Fail(ctx, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
