package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddspool/oddspool-backend/pkg/enums"
)

// StakePlacedEvent lets clients refresh odds and balances after a placement.
type StakePlacedEvent struct {
	StakeID         uuid.UUID       `json:"stake_id"`
	MarketID        uuid.UUID       `json:"market_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Side            enums.Outcome   `json:"side"`
	Amount          int64           `json:"amount"`
	Odds            decimal.Decimal `json:"odds"`
	PotentialPayout int64           `json:"potential_payout"`
	PromoCode       *string         `json:"promo_code,omitempty"`
	YesStakeTotal   int64           `json:"yes_stake_total"`
	NoStakeTotal    int64           `json:"no_stake_total"`
}

// PromoRedeemedEvent reports one consumed use of a promo code.
type PromoRedeemedEvent struct {
	PromoCodeID uuid.UUID `json:"promo_code_id"`
	Code        string    `json:"code"`
	UserID      uuid.UUID `json:"user_id"`
	StakeID     uuid.UUID `json:"stake_id"`
	UsedCount   int64     `json:"used_count"`
}

// StakeSettledEvent is emitted per stake when its market resolves.
type StakeSettledEvent struct {
	StakeID  uuid.UUID         `json:"stake_id"`
	MarketID uuid.UUID         `json:"market_id"`
	UserID   uuid.UUID         `json:"user_id"`
	Status   enums.StakeStatus `json:"status"`
	Payout   int64             `json:"payout"`
}

// MarketSettledEvent summarises a completed settlement run for one market.
type MarketSettledEvent struct {
	MarketID       uuid.UUID     `json:"market_id"`
	WinningOutcome enums.Outcome `json:"winning_outcome"`
	Winners        int           `json:"winners"`
	Losers         int           `json:"losers"`
	TotalPaidOut   int64         `json:"total_paid_out"`
	SettledAt      time.Time     `json:"settled_at"`
}

// PoolDriftDetectedEvent flags a running total that disagreed with the stake rows.
type PoolDriftDetectedEvent struct {
	MarketID    uuid.UUID `json:"market_id"`
	StoredYes   int64     `json:"stored_yes"`
	StoredNo    int64     `json:"stored_no"`
	ComputedYes int64     `json:"computed_yes"`
	ComputedNo  int64     `json:"computed_no"`
}
