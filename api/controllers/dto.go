package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
)

type PlaceStakeRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	MarketID  string `json:"market_id" validate:"required,uuid"`
	Side      string `json:"side" validate:"required,outcome"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	PromoCode string `json:"promo_code,omitempty" validate:"omitempty,max=64"`
}

type ResolveMarketRequest struct {
	Outcome string `json:"outcome" validate:"required,outcome"`
}

type StakeResponse struct {
	ID                   uuid.UUID         `json:"id"`
	UserID               uuid.UUID         `json:"user_id"`
	MarketID             uuid.UUID         `json:"market_id"`
	Side                 enums.Outcome     `json:"side"`
	Amount               int64             `json:"amount"`
	OddsAtPlacement      decimal.Decimal   `json:"odds_at_placement"`
	PotentialPayout      int64             `json:"potential_payout"`
	PromoCode            *string           `json:"promo_code,omitempty"`
	PromoDiscountPercent decimal.Decimal   `json:"promo_discount_percent"`
	Status               enums.StakeStatus `json:"status"`
	Payout               *int64            `json:"payout,omitempty"`
	SettledAt            *time.Time        `json:"settled_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}

type PlaceStakeResponse struct {
	Stake         StakeResponse       `json:"stake"`
	Payout        pricing.PayoutQuote `json:"payout"`
	WalletBalance int64               `json:"wallet_balance"`
	YesStakeTotal int64               `json:"yes_stake_total"`
	NoStakeTotal  int64               `json:"no_stake_total"`
}

type StakePageResponse struct {
	Stakes     []StakeResponse `json:"stakes"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type PromoResponse struct {
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ExpiresAt       time.Time       `json:"expires_at"`
	RemainingUses   *int64          `json:"remaining_uses,omitempty"`
}

func newStakeResponse(stake models.Stake) StakeResponse {
	return StakeResponse{
		ID:                   stake.ID,
		UserID:               stake.UserID,
		MarketID:             stake.MarketID,
		Side:                 stake.Side,
		Amount:               stake.Amount,
		OddsAtPlacement:      stake.OddsAtPlacement,
		PotentialPayout:      stake.PotentialPayout,
		PromoCode:            stake.PromoCode,
		PromoDiscountPercent: stake.PromoDiscountPercent,
		Status:               stake.Status,
		Payout:               stake.Payout,
		SettledAt:            stake.SettledAt,
		CreatedAt:            stake.CreatedAt,
	}
}

func newPlaceStakeResponse(result *stakes.PlaceStakeResult) PlaceStakeResponse {
	return PlaceStakeResponse{
		Stake:         newStakeResponse(result.Stake),
		Payout:        result.Payout,
		WalletBalance: result.Balance,
		YesStakeTotal: result.Pool.Yes,
		NoStakeTotal:  result.Pool.No,
	}
}

func newPromoResponse(promo *models.PromoCode) PromoResponse {
	resp := PromoResponse{
		Code:            promo.Code,
		DiscountPercent: promo.DiscountPercent,
		ExpiresAt:       promo.ExpiresAt,
	}
	if promo.UsageLimit != nil {
		remaining := *promo.UsageLimit - promo.UsedCount
		if remaining < 0 {
			remaining = 0
		}
		resp.RemainingUses = &remaining
	}
	return resp
}
