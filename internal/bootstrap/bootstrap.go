// Package bootstrap opens the connections every oddspool binary shares.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/oddspool/oddspool-backend/pkg/config"
	"github.com/oddspool/oddspool-backend/pkg/db"
	"github.com/oddspool/oddspool-backend/pkg/instance"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/migrate"
	"github.com/oddspool/oddspool-backend/pkg/redis"
)

type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client
}

// Start loads .env and config, builds the service logger, connects Postgres
// and Redis, and applies dev migrations. The returned Runtime is never nil, so
// callers can report a failed start through it.
func Start(ctx context.Context, kind string) (*Runtime, error) {
	bootLog := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return &Runtime{Logger: bootLog}, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Instance:    instance.GetID(),
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}

	if rt.DB, err = db.New(ctx, cfg.DB, rt.Logger); err != nil {
		return rt, fmt.Errorf("connect database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		rt.Close()
		return rt, fmt.Errorf("dev migrations: %w", err)
	}
	if rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger); err != nil {
		rt.Close()
		return rt, fmt.Errorf("connect redis: %w", err)
	}
	return rt, nil
}

// BaseContext carries the fields every log line of this process should have.
func (r *Runtime) BaseContext(ctx context.Context) context.Context {
	return r.Logger.WithFields(ctx, map[string]any{
		"env":          r.Config.App.Env,
		"service_kind": r.Config.Service.Kind,
	})
}

func (r *Runtime) Close() {
	ctx := context.Background()
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			r.Logger.Error(ctx, "error closing redis", err)
		}
		r.Redis = nil
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			r.Logger.Error(ctx, "error closing database", err)
		}
		r.DB = nil
	}
}

// Fail logs err, releases the connections and exits non-zero.
func (r *Runtime) Fail(ctx context.Context, msg string, err error) {
	r.Logger.Error(ctx, msg, err)
	r.Close()
	os.Exit(1)
}
