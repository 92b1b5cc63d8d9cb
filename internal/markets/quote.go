package markets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	"github.com/oddspool/oddspool-backend/pkg/logger"
)

// PromoLookup validates a promo code without consuming it.
type PromoLookup interface {
	Validate(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error)
}

// QuoteInput describes a prospective stake.
type QuoteInput struct {
	MarketID  uuid.UUID
	Side      enums.Outcome
	Amount    int64
	PromoCode string
}

// Quote is a display-only price. It is not a commitment; placement re-prices inside its transaction.
type Quote struct {
	MarketID uuid.UUID             `json:"market_id"`
	Side     enums.Outcome         `json:"side"`
	Pool     pricing.Pool          `json:"-"`
	Odds     pricing.OddsQuote     `json:"odds"`
	Payout   *pricing.PayoutQuote  `json:"payout,omitempty"`
	Impact   *pricing.MarketImpact `json:"impact,omitempty"`
}

// QuoteService prices markets for read-only endpoints.
type QuoteService struct {
	repo   Repository
	engine *pricing.Engine
	promos PromoLookup
	cache  PoolCache
	logg   *logger.Logger
}

// NewQuoteService wires the read path. cache may be nil.
func NewQuoteService(repo Repository, engine *pricing.Engine, promos PromoLookup, cache PoolCache, logg *logger.Logger) (*QuoteService, error) {
	if repo == nil {
		return nil, fmt.Errorf("market repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if promos == nil {
		return nil, fmt.Errorf("promo lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &QuoteService{repo: repo, engine: engine, promos: promos, cache: cache, logg: logg}, nil
}

// Pool returns the market's pool sums, preferring the display cache.
func (s *QuoteService) Pool(ctx context.Context, marketID uuid.UUID) (pricing.Pool, error) {
	if s.cache != nil {
		pool, ok, err := s.cache.Get(ctx, marketID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "pool cache read failed")
		} else if ok {
			return pool, nil
		}
	}

	pool, err := s.repo.PoolSums(ctx, marketID)
	if err != nil {
		return pricing.Pool{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, marketID, pool); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "pool cache write failed")
		}
	}
	return pool, nil
}

// Quote prices the requested side. Payout and impact are included when an amount is given.
func (s *QuoteService) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	pool, err := s.Pool(ctx, input.MarketID)
	if err != nil {
		return nil, err
	}

	var promo *pricing.Promo
	if input.PromoCode != "" {
		code, err := s.promos.Validate(ctx, nil, input.PromoCode)
		if err != nil {
			return nil, err
		}
		promo = &pricing.Promo{Code: code.Code, DiscountPercent: code.DiscountPercent}
	}

	odds, err := s.engine.CalculateOddsWithPromo(pool, input.Side, promo, 0)
	if err != nil {
		return nil, err
	}

	quote := &Quote{MarketID: input.MarketID, Side: input.Side, Pool: pool, Odds: odds}
	if input.Amount > 0 {
		payout, err := s.engine.CalculatePayout(input.Amount, odds.BaseOdds, promo)
		if err != nil {
			return nil, err
		}
		impact, err := s.engine.CalculateMarketImpact(pool, input.Side, input.Amount)
		if err != nil {
			return nil, err
		}
		quote.Payout = &payout
		quote.Impact = &impact
	}
	return quote, nil
}

// Liquidity reports pool depth and side balance for a market.
func (s *QuoteService) Liquidity(ctx context.Context, marketID uuid.UUID) (pricing.MarketLiquidity, error) {
	pool, err := s.Pool(ctx, marketID)
	if err != nil {
		return pricing.MarketLiquidity{}, err
	}
	return s.engine.GetMarketLiquidity(pool)
}

// Invalidate drops the cached pool for a market after its totals change.
func (s *QuoteService) Invalidate(ctx context.Context, marketID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "pool cache invalidate failed")
	}
}
