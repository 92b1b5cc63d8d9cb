package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/outbox"
)

// Job is one unit of scheduled work. Name labels metrics and log lines, so it
// must be unique within a Registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic jobs run at most once per Every, however short the worker tick is.
type Periodic interface {
	Every() time.Duration
}

type Registry struct {
	mu      sync.Mutex
	jobs    []Job
	lastRun map[string]time.Time
}

// NewRegistry keeps jobs in the given order; nil entries and repeated names are dropped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{lastRun: make(map[string]time.Time)}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.Name() == job.Name() {
			return fmt.Errorf("cron job %q already registered", job.Name())
		}
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of every registered job.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Job(nil), r.jobs...)
}

// Due returns the jobs that should run at now and records now as their last
// start. Jobs without a Periodic cadence are always due.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRun == nil {
		r.lastRun = make(map[string]time.Time)
	}
	due := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if p, ok := job.(Periodic); ok {
			if last, ran := r.lastRun[job.Name()]; ran && now.Sub(last) < p.Every() {
				continue
			}
		}
		r.lastRun[job.Name()] = now
		due = append(due, job)
	}
	return due
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}
