package markets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

type fakePromoLookup struct {
	validateFn func(code string) (*models.PromoCode, error)
}

func (f fakePromoLookup) Validate(_ context.Context, _ *gorm.DB, code string) (*models.PromoCode, error) {
	if f.validateFn != nil {
		return f.validateFn(code)
	}
	return nil, pkgerrors.New(pkgerrors.CodePromoInvalid, "promo code not found")
}

type memoryPoolCache struct {
	pools       map[uuid.UUID]pricing.Pool
	getErr      error
	sets        int
	invalidated []uuid.UUID
}

func newMemoryPoolCache() *memoryPoolCache {
	return &memoryPoolCache{pools: map[uuid.UUID]pricing.Pool{}}
}

func (c *memoryPoolCache) Get(_ context.Context, id uuid.UUID) (pricing.Pool, bool, error) {
	if c.getErr != nil {
		return pricing.Pool{}, false, c.getErr
	}
	pool, ok := c.pools[id]
	return pool, ok, nil
}

func (c *memoryPoolCache) Set(_ context.Context, id uuid.UUID, pool pricing.Pool) error {
	c.sets++
	c.pools[id] = pool
	return nil
}

func (c *memoryPoolCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.pools, id)
	return nil
}

func newQuoteFixture(t *testing.T, cache PoolCache, promos PromoLookup) (*QuoteService, Repository) {
	t.Helper()
	repo := NewRepository(newMarketDB(t))
	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)
	svc, err := NewQuoteService(repo, engine, promos, cache, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestNewQuoteServiceRequiresDependencies(t *testing.T) {
	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)

	_, err = NewQuoteService(nil, engine, fakePromoLookup{}, nil, nil)
	require.Error(t, err)
	_, err = NewQuoteService(NewRepository(nil), nil, fakePromoLookup{}, nil, nil)
	require.Error(t, err)
	_, err = NewQuoteService(NewRepository(nil), engine, nil, nil, nil)
	require.Error(t, err)
}

func TestQuoteWithoutAmount(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	quote, err := svc.Quote(context.Background(), QuoteInput{MarketID: market.ID, Side: enums.OutcomeYes})
	require.NoError(t, err)
	assert.Equal(t, "1.94", quote.Odds.BaseOdds.String())
	assert.True(t, quote.Odds.FinalOdds.Equal(quote.Odds.BaseOdds))
	assert.Nil(t, quote.Payout)
	assert.Nil(t, quote.Impact)
}

func TestQuoteWithPromoAndAmount(t *testing.T) {
	promos := fakePromoLookup{validateFn: func(code string) (*models.PromoCode, error) {
		return &models.PromoCode{Code: "BOOST10", DiscountPercent: decimal.NewFromInt(10), IsActive: true, ExpiresAt: time.Now().Add(time.Hour)}, nil
	}}
	svc, repo := newQuoteFixture(t, nil, promos)
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	quote, err := svc.Quote(context.Background(), QuoteInput{
		MarketID:  market.ID,
		Side:      enums.OutcomeYes,
		Amount:    100_000,
		PromoCode: "boost10",
	})
	require.NoError(t, err)
	require.NotNil(t, quote.Payout)
	require.NotNil(t, quote.Impact)
	assert.Equal(t, int64(194_000), quote.Payout.BasePayout)
	assert.Equal(t, int64(213_400), quote.Payout.FinalPayout)
	assert.True(t, quote.Odds.DiscountPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.Odds.FinalOdds.Equal(decimal.RequireFromString("2.134")))
}

func TestQuoteSurfacesPromoRejection(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	_, err := svc.Quote(context.Background(), QuoteInput{MarketID: market.ID, Side: enums.OutcomeNo, PromoCode: "NOPE"})
	require.Equal(t, pkgerrors.CodePromoInvalid, pkgerrors.CodeOf(err))
}

func TestQuoteRejectsInvalidSide(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	_, err := svc.Quote(context.Background(), QuoteInput{MarketID: market.ID, Side: "maybe"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestPoolReadsThroughCache(t *testing.T) {
	cache := newMemoryPoolCache()
	svc, repo := newQuoteFixture(t, cache, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)
	ctx := context.Background()

	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeYes, 300))
	pool, err := svc.Pool(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{Yes: 300}, pool)
	require.Equal(t, 1, cache.sets)

	// served from cache even though storage moved on
	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeYes, 200))
	pool, err = svc.Pool(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{Yes: 300}, pool)

	svc.Invalidate(ctx, market.ID)
	require.Equal(t, []uuid.UUID{market.ID}, cache.invalidated)
	pool, err = svc.Pool(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{Yes: 500}, pool)
}

func TestPoolFallsBackWhenCacheFails(t *testing.T) {
	cache := newMemoryPoolCache()
	cache.getErr = errors.New("redis down")
	svc, repo := newQuoteFixture(t, cache, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	require.NoError(t, repo.IncrementPool(context.Background(), market.ID, enums.OutcomeNo, 42))
	pool, err := svc.Pool(context.Background(), market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{No: 42}, pool)
}

func TestLiquidity(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, fakePromoLookup{})
	market := seedMarket(t, repo, enums.MarketStatusOpen)
	ctx := context.Background()

	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeYes, 75_000))
	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeNo, 25_000))

	liq, err := svc.Liquidity(ctx, market.ID)
	require.NoError(t, err)
	assert.True(t, liq.YesPercent.Equal(decimal.NewFromInt(75)))
	assert.True(t, liq.NoPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, pricing.LiquidityLow, liq.LiquidityLevel)

	_, err = svc.Liquidity(ctx, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestLiquidityLowThresholdBoundary(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, fakePromoLookup{})
	ctx := context.Background()

	below := seedMarket(t, repo, enums.MarketStatusOpen)
	require.NoError(t, repo.IncrementPool(ctx, below.ID, enums.OutcomeYes, 74_999))
	require.NoError(t, repo.IncrementPool(ctx, below.ID, enums.OutcomeNo, 25_000))
	liq, err := svc.Liquidity(ctx, below.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.LiquidityVeryLow, liq.LiquidityLevel)

	at := seedMarket(t, repo, enums.MarketStatusOpen)
	require.NoError(t, repo.IncrementPool(ctx, at.ID, enums.OutcomeYes, 100_000))
	liq, err = svc.Liquidity(ctx, at.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.LiquidityLow, liq.LiquidityLevel)
}
