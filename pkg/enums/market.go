package enums

import "fmt"

// MarketStatus maps to the market_status enum in Postgres.
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "open"
	MarketStatusClosed    MarketStatus = "closed"
	MarketStatusSettled   MarketStatus = "settled"
	MarketStatusCancelled MarketStatus = "cancelled"
)

var validMarketStatuses = []MarketStatus{
	MarketStatusOpen,
	MarketStatusClosed,
	MarketStatusSettled,
	MarketStatusCancelled,
}

// IsValid reports whether the value matches the canonical market_status enum.
func (m MarketStatus) IsValid() bool {
	for _, candidate := range validMarketStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMarketStatus converts raw input into MarketStatus.
func ParseMarketStatus(value string) (MarketStatus, error) {
	for _, candidate := range validMarketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid market status %q", value)
}

// Outcome is one side of a binary market. It doubles as the stake side and the winning outcome.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

var validOutcomes = []Outcome{OutcomeYes, OutcomeNo}

func (o Outcome) IsValid() bool {
	for _, candidate := range validOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// Opposite returns the other side of the market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// ParseOutcome converts raw input into Outcome.
func ParseOutcome(value string) (Outcome, error) {
	for _, candidate := range validOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outcome %q", value)
}
