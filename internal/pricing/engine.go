package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Pool is the sum of active stake amounts per side, in minor units.
type Pool struct {
	Yes int64
	No  int64
}

// Total returns the combined stake volume.
func (p Pool) Total() int64 {
	return p.Yes + p.No
}

// Promo carries the discount of a promo code that already passed validation.
// A nil *Promo means no promo applies.
type Promo struct {
	Code            string
	DiscountPercent decimal.Decimal
}

func (p *Promo) multiplier() decimal.Decimal {
	if p == nil || !p.DiscountPercent.IsPositive() {
		return one
	}
	return one.Add(p.DiscountPercent.Div(hundred))
}

func (p *Promo) discount() decimal.Decimal {
	if p == nil || !p.DiscountPercent.IsPositive() {
		return decimal.Zero
	}
	return p.DiscountPercent
}

// Engine prices binary markets from pool sums. It holds no mutable state, so
// a single instance is safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pricing config")
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns a copy of the engine parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// CalculateOdds returns the decimal odds for side, optionally simulating an
// extra stake on that side. The result is rounded to two decimals.
func (e *Engine) CalculateOdds(pool Pool, side enums.Outcome, additionalStake int64) (decimal.Decimal, error) {
	if err := checkInputs(pool, side, additionalStake); err != nil {
		return decimal.Zero, err
	}

	yes := float64(pool.Yes)
	no := float64(pool.No)
	if side == enums.OutcomeYes {
		yes += float64(additionalStake)
	} else {
		no += float64(additionalStake)
	}

	half := float64(e.cfg.BaseLiquidity) / 2
	floor := float64(e.cfg.PoolFloor)
	yes = math.Max(yes+half, floor)
	no = math.Max(no+half, floor)

	opposite := no
	if side == enums.OutcomeNo {
		opposite = yes
	}
	probability := clamp(opposite/(yes+no), e.cfg.MinProbability, e.cfg.MaxProbability)
	odds := clamp((1/probability)*e.cfg.HouseEdge, e.cfg.MinOdds, e.cfg.MaxOdds)

	return decimal.NewFromFloat(odds).Round(2), nil
}

// OddsQuote is the promo-aware price for one side.
type OddsQuote struct {
	BaseOdds        decimal.Decimal `json:"base_odds"`
	FinalOdds       decimal.Decimal `json:"final_odds"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

func (e *Engine) CalculateOddsWithPromo(pool Pool, side enums.Outcome, promo *Promo, additionalStake int64) (OddsQuote, error) {
	base, err := e.CalculateOdds(pool, side, additionalStake)
	if err != nil {
		return OddsQuote{}, err
	}
	return OddsQuote{
		BaseOdds:        base,
		FinalOdds:       base.Mul(promo.multiplier()),
		DiscountPercent: promo.discount(),
	}, nil
}

// PayoutQuote holds integer minor-unit payouts plus major-unit display values.
type PayoutQuote struct {
	BasePayout      int64 `json:"base_payout"`
	FinalPayout     int64 `json:"final_payout"`
	PotentialProfit int64 `json:"potential_profit"`

	DisplayBasePayout      decimal.Decimal `json:"display_base_payout"`
	DisplayFinalPayout     decimal.Decimal `json:"display_final_payout"`
	DisplayPotentialProfit decimal.Decimal `json:"display_potential_profit"`
}

// CalculatePayout applies odds (and any promo) to an integer stake amount.
func (e *Engine) CalculatePayout(amount int64, odds decimal.Decimal, promo *Promo) (PayoutQuote, error) {
	if amount <= 0 {
		return PayoutQuote{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"field": "amount"})
	}
	if !odds.IsPositive() {
		return PayoutQuote{}, pkgerrors.New(pkgerrors.CodeValidation, "odds must be positive").
			WithDetails(map[string]any{"field": "odds"})
	}

	base := decimal.NewFromInt(amount).Mul(odds).Round(0)
	final := base
	if promo != nil {
		final = base.Mul(promo.multiplier()).Round(0)
	}

	q := PayoutQuote{
		BasePayout:  base.IntPart(),
		FinalPayout: final.IntPart(),
	}
	q.PotentialProfit = q.FinalPayout - amount
	q.DisplayBasePayout = MajorUnits(q.BasePayout)
	q.DisplayFinalPayout = MajorUnits(q.FinalPayout)
	q.DisplayPotentialProfit = MajorUnits(q.PotentialProfit)
	return q, nil
}

// MajorUnits converts minor units to major currency for presentation only.
func MajorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func checkInputs(pool Pool, side enums.Outcome, additionalStake int64) error {
	if !side.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "side must be yes or no").
			WithDetails(map[string]any{"field": "side"})
	}
	if pool.Yes < 0 || pool.No < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "pool sums must be non-negative")
	}
	if additionalStake < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "additional stake must be non-negative").
			WithDetails(map[string]any{"field": "amount"})
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
