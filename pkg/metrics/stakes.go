package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StakeMetrics tracks placement outcomes and the side effects around them.
type StakeMetrics struct {
	placements       *prometheus.CounterVec
	placementLatency prometheus.Histogram
	stakedAmount     *prometheus.CounterVec
	promoRedemptions *prometheus.CounterVec
	activityFailures prometheus.Counter
	settledStakes    *prometheus.CounterVec
	paidOut          prometheus.Counter
	poolDrift        prometheus.Counter
	outboxPublished  *prometheus.CounterVec
}

// NewStakeMetrics registers stake metrics on reg. A nil registerer yields a no-op recorder.
func NewStakeMetrics(reg prometheus.Registerer) *StakeMetrics {
	if reg == nil {
		return &StakeMetrics{}
	}
	m := &StakeMetrics{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stakes",
			Name:      "placements_total",
			Help:      "Stake placement attempts by result code.",
		}, []string{"result"}),
		placementLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stakes",
			Name:      "placement_duration_seconds",
			Help:      "Latency of the place-stake transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
		stakedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stakes",
			Name:      "staked_minor_units_total",
			Help:      "Committed stake volume in minor units by side.",
		}, []string{"side"}),
		promoRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "promos",
			Name:      "redemptions_total",
			Help:      "Promo redemption attempts by result.",
		}, []string{"result"}),
		activityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "activity",
			Name:      "append_failures_total",
			Help:      "Activity log writes that failed without aborting the transaction.",
		}),
		settledStakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "stakes_total",
			Help:      "Stakes resolved by settlement, by final status.",
		}, []string{"status"}),
		paidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "paid_out_minor_units_total",
			Help:      "Winnings credited to wallets in minor units.",
		}),
		poolDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "markets",
			Name:      "pool_drift_total",
			Help:      "Markets whose running pool totals disagreed with their stakes.",
		}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox rows processed by the publisher, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.placements,
		m.placementLatency,
		m.stakedAmount,
		m.promoRedemptions,
		m.activityFailures,
		m.settledStakes,
		m.paidOut,
		m.poolDrift,
		m.outboxPublished,
	)
	return m
}

// ObservePlacement records one placement attempt. result is "ok" or an error code.
func (m *StakeMetrics) ObservePlacement(result string, duration time.Duration) {
	if m == nil || m.placements == nil {
		return
	}
	m.placements.WithLabelValues(labelOrUnknown(result)).Inc()
	m.placementLatency.Observe(duration.Seconds())
}

func (m *StakeMetrics) AddStaked(side string, amount int64) {
	if m == nil || m.stakedAmount == nil || amount <= 0 {
		return
	}
	m.stakedAmount.WithLabelValues(labelOrUnknown(side)).Add(float64(amount))
}

func (m *StakeMetrics) IncPromoRedemption(result string) {
	if m == nil || m.promoRedemptions == nil {
		return
	}
	m.promoRedemptions.WithLabelValues(labelOrUnknown(result)).Inc()
}

func (m *StakeMetrics) IncActivityFailure() {
	if m == nil || m.activityFailures == nil {
		return
	}
	m.activityFailures.Inc()
}

func (m *StakeMetrics) IncSettled(status string, payout int64) {
	if m == nil || m.settledStakes == nil {
		return
	}
	m.settledStakes.WithLabelValues(labelOrUnknown(status)).Inc()
	if payout > 0 {
		m.paidOut.Add(float64(payout))
	}
}

func (m *StakeMetrics) IncPoolDrift() {
	if m == nil || m.poolDrift == nil {
		return
	}
	m.poolDrift.Inc()
}

func (m *StakeMetrics) IncOutbox(result string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(labelOrUnknown(result)).Inc()
}
