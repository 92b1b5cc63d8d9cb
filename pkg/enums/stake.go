package enums

import "fmt"

// StakeStatus maps to the stake_status enum in Postgres.
type StakeStatus string

const (
	StakeStatusActive    StakeStatus = "active"
	StakeStatusWon       StakeStatus = "won"
	StakeStatusLost      StakeStatus = "lost"
	StakeStatusRefunded  StakeStatus = "refunded"
	StakeStatusCancelled StakeStatus = "cancelled"
)

var validStakeStatuses = []StakeStatus{
	StakeStatusActive,
	StakeStatusWon,
	StakeStatusLost,
	StakeStatusRefunded,
	StakeStatusCancelled,
}

// IsValid reports whether the value matches the canonical stake_status enum.
func (s StakeStatus) IsValid() bool {
	for _, candidate := range validStakeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether settlement has already resolved the stake.
func (s StakeStatus) IsTerminal() bool {
	return s != StakeStatusActive
}

// ParseStakeStatus converts raw input into StakeStatus.
func ParseStakeStatus(value string) (StakeStatus, error) {
	for _, candidate := range validStakeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stake status %q", value)
}
