package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateMarket    OutboxAggregateType = "market"
	AggregateStake     OutboxAggregateType = "stake"
	AggregatePromoCode OutboxAggregateType = "promo_code"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMarket,
	AggregateStake,
	AggregatePromoCode,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventStakePlaced       OutboxEventType = "stake_placed"
	EventPromoRedeemed     OutboxEventType = "promo_redeemed"
	EventStakeSettled      OutboxEventType = "stake_settled"
	EventMarketSettled     OutboxEventType = "market_settled"
	EventPoolDriftDetected OutboxEventType = "pool_drift_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventStakePlaced,
	EventPromoRedeemed,
	EventStakeSettled,
	EventMarketSettled,
	EventPoolDriftDetected,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
