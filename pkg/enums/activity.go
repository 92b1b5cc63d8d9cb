package enums

import "fmt"

// ActivityAction tags rows in the append-only activity_logs table.
type ActivityAction string

const (
	ActivityStakePlaced   ActivityAction = "stake_placed"
	ActivityPromoRedeemed ActivityAction = "promo_redeemed"
	ActivityStakeWon      ActivityAction = "stake_won"
	ActivityStakeLost     ActivityAction = "stake_lost"
	ActivityStakeRefunded ActivityAction = "stake_refunded"
)

var validActivityActions = []ActivityAction{
	ActivityStakePlaced,
	ActivityPromoRedeemed,
	ActivityStakeWon,
	ActivityStakeLost,
	ActivityStakeRefunded,
}

// IsValid reports whether the value matches a known activity action.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}
