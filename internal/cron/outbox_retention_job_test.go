package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/logger"
)

type purgeCall struct {
	cutoff       time.Time
	deadAttempts int
	limit        int
}

type scriptedPurger struct {
	results []int64
	err     error
	calls   []purgeCall
}

func (s *scriptedPurger) PurgeBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, deadAttempts, limit int) (int64, error) {
	s.calls = append(s.calls, purgeCall{cutoff: cutoff, deadAttempts: deadAttempts, limit: limit})
	if s.err != nil {
		return 0, s.err
	}
	if len(s.calls) > len(s.results) {
		return 0, nil
	}
	return s.results[len(s.calls)-1], nil
}

type inlineTx struct{}

func (inlineTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func retentionJobFor(t *testing.T, purger *scriptedPurger, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.Nop()
	params.DB = inlineTx{}
	params.Repository = purger
	job, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionDrainsFullBatches(t *testing.T) {
	purger := &scriptedPurger{results: []int64{3, 3, 1}}
	job := retentionJobFor(t, purger, OutboxRetentionJobParams{BatchSize: 3, Retention: 48 * time.Hour, DeadAttempts: 4})
	now := time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(purger.calls) != 3 {
		t.Fatalf("expected purge to stop after a short batch, got %d calls", len(purger.calls))
	}
	first := purger.calls[0]
	if !first.cutoff.Equal(now.Add(-48*time.Hour)) || first.deadAttempts != 4 || first.limit != 3 {
		t.Fatalf("unexpected purge arguments %+v", first)
	}
}

func TestOutboxRetentionCapsBatchesPerRun(t *testing.T) {
	results := make([]int64, maxPurgeBatchesPerRun+5)
	for i := range results {
		results[i] = 2
	}
	purger := &scriptedPurger{results: results}
	job := retentionJobFor(t, purger, OutboxRetentionJobParams{BatchSize: 2})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(purger.calls) != maxPurgeBatchesPerRun {
		t.Fatalf("expected %d batches, got %d", maxPurgeBatchesPerRun, len(purger.calls))
	}
}

func TestOutboxRetentionDefaultsAndErrors(t *testing.T) {
	purger := &scriptedPurger{err: errors.New("boom")}
	job := retentionJobFor(t, purger, OutboxRetentionJobParams{})
	if job.retention != defaultOutboxRetention || job.batch != defaultPurgeBatch || job.deadAttempts != defaultDeadAttempts {
		t.Fatalf("defaults not applied: %+v", job)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected purge error to propagate")
	}

	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected missing db runner error")
	}
}
