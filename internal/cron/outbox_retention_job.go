package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 7 * 24 * time.Hour
	defaultPurgeBatch      = 500
	defaultDeadAttempts    = 10
	// keeps one cycle from monopolising the lock on a large backlog
	maxPurgeBatchesPerRun = 20
)

type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repository   outboxPurger
	Retention    time.Duration
	BatchSize    int
	DeadAttempts int
}

type outboxPurger interface {
	PurgeBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, deadAttempts, limit int) (int64, error)
}

// NewOutboxRetentionJob removes delivered and dead outbox rows older than the
// retention window, one short transaction per batch.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("outbox retention: logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("outbox retention: db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox retention: repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		retention:    params.Retention,
		batch:        params.BatchSize,
		deadAttempts: params.DeadAttempts,
		now:          time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.batch <= 0 {
		job.batch = defaultPurgeBatch
	}
	if job.deadAttempts <= 0 {
		job.deadAttempts = defaultDeadAttempts
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxPurger
	retention    time.Duration
	batch        int
	deadAttempts int
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Every() time.Duration { return time.Hour }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	batches := 0
	for batches < maxPurgeBatchesPerRun {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.PurgeBefore(ctx, tx, cutoff, j.deadAttempts, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention batch %d: %w", batches+1, err)
		}
		batches++
		total += n
		if n < int64(j.batch) {
			break
		}
	}

	if total > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":       cutoff,
			"rows_deleted": total,
			"batches":      batches,
		}), "outbox retention purge complete")
	}
	return nil
}
