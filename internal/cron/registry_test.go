package cron

import (
	"context"
	"testing"
	"time"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

type hourlyJob struct{ namedJob }

func (hourlyJob) Every() time.Duration { return time.Hour }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	r := NewRegistry(namedJob("market-settlement"), nil, namedJob("pool-reconcile"), namedJob("market-settlement"))
	jobs := r.Jobs()
	if len(jobs) != 2 || jobs[0].Name() != "market-settlement" || jobs[1].Name() != "pool-reconcile" {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	if err := r.Register(namedJob("pool-reconcile")); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	jobs[0] = nil
	if r.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}

func TestRegistryDueHonoursPeriodicCadence(t *testing.T) {
	r := NewRegistry(namedJob("market-settlement"), hourlyJob{namedJob("outbox-retention")})
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	names := func(jobs []Job) []string {
		out := make([]string, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, j.Name())
		}
		return out
	}

	if got := names(r.Due(start)); len(got) != 2 {
		t.Fatalf("first tick should run everything, got %v", got)
	}
	if got := names(r.Due(start.Add(time.Minute))); len(got) != 1 || got[0] != "market-settlement" {
		t.Fatalf("hourly job should wait, got %v", got)
	}
	if got := names(r.Due(start.Add(time.Hour))); len(got) != 2 {
		t.Fatalf("hourly job should be due again, got %v", got)
	}
}
