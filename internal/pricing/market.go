package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

type ImpactLevel string

const (
	ImpactHigh    ImpactLevel = "high"
	ImpactMedium  ImpactLevel = "medium"
	ImpactLow     ImpactLevel = "low"
	ImpactMinimal ImpactLevel = "minimal"
)

type LiquidityLevel string

const (
	LiquidityHigh    LiquidityLevel = "high"
	LiquidityMedium  LiquidityLevel = "medium"
	LiquidityLow     LiquidityLevel = "low"
	LiquidityVeryLow LiquidityLevel = "very_low"
)

// MarketImpact describes how far a prospective stake would move its own side's odds.
type MarketImpact struct {
	CurrentOdds       decimal.Decimal `json:"current_odds"`
	NewOdds           decimal.Decimal `json:"new_odds"`
	OddsChangePercent decimal.Decimal `json:"odds_change_percent"`
	ImpactLevel       ImpactLevel     `json:"impact_level"`
}

func (e *Engine) CalculateMarketImpact(pool Pool, side enums.Outcome, amount int64) (MarketImpact, error) {
	if amount <= 0 {
		return MarketImpact{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"field": "amount"})
	}
	current, err := e.CalculateOdds(pool, side, 0)
	if err != nil {
		return MarketImpact{}, err
	}
	next, err := e.CalculateOdds(pool, side, amount)
	if err != nil {
		return MarketImpact{}, err
	}

	change := next.Sub(current).Div(current).Mul(hundred)
	return MarketImpact{
		CurrentOdds:       current,
		NewOdds:           next,
		OddsChangePercent: change.Round(2),
		ImpactLevel:       impactLevelFor(change.Abs()),
	}, nil
}

func impactLevelFor(changePercent decimal.Decimal) ImpactLevel {
	switch {
	case changePercent.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return ImpactHigh
	case changePercent.GreaterThanOrEqual(decimal.NewFromInt(5)):
		return ImpactMedium
	case changePercent.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return ImpactLow
	default:
		return ImpactMinimal
	}
}

// MarketLiquidity summarises real stake volume, excluding the virtual base liquidity.
type MarketLiquidity struct {
	YesTotal       int64           `json:"yes_total"`
	NoTotal        int64           `json:"no_total"`
	Total          int64           `json:"total"`
	YesPercent     decimal.Decimal `json:"yes_percent"`
	NoPercent      decimal.Decimal `json:"no_percent"`
	DisplayTotal   decimal.Decimal `json:"display_total"`
	LiquidityLevel LiquidityLevel  `json:"liquidity_level"`
}

func (e *Engine) GetMarketLiquidity(pool Pool) (MarketLiquidity, error) {
	if pool.Yes < 0 || pool.No < 0 {
		return MarketLiquidity{}, pkgerrors.New(pkgerrors.CodeValidation, "pool sums must be non-negative")
	}
	total := pool.Total()
	out := MarketLiquidity{
		YesTotal:     pool.Yes,
		NoTotal:      pool.No,
		Total:        total,
		YesPercent:   decimal.NewFromInt(50),
		NoPercent:    decimal.NewFromInt(50),
		DisplayTotal: MajorUnits(total),
	}
	if total > 0 {
		out.YesPercent = decimal.NewFromInt(pool.Yes).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2)
		out.NoPercent = hundred.Sub(out.YesPercent)
	}
	out.LiquidityLevel = liquidityLevelFor(out.DisplayTotal)
	return out, nil
}

func liquidityLevelFor(major decimal.Decimal) LiquidityLevel {
	switch {
	case major.GreaterThanOrEqual(decimal.NewFromInt(100_000)):
		return LiquidityHigh
	case major.GreaterThanOrEqual(decimal.NewFromInt(10_000)):
		return LiquidityMedium
	case major.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return LiquidityLow
	default:
		return LiquidityVeryLow
	}
}
