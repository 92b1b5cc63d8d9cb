package markets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

func newMarketDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:markets_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func seedMarket(t *testing.T, repo Repository, status enums.MarketStatus) *models.Market {
	t.Helper()
	market := &models.Market{
		Question: "Will the launch happen on schedule?",
		Status:   status,
		ClosesAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), market))
	return market
}

func seedStake(t *testing.T, conn *gorm.DB, marketID uuid.UUID, side enums.Outcome, amount int64, status enums.StakeStatus) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Stake{
		UserID:          uuid.New(),
		MarketID:        marketID,
		Side:            side,
		Amount:          amount,
		PotentialPayout: amount * 2,
		Status:          status,
	}).Error)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewRepository(newMarketDB(t))
	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestIncrementPoolAndPoolSums(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newMarketDB(t))
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeYes, 1_500))
	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeNo, 700))
	require.NoError(t, repo.IncrementPool(ctx, market.ID, enums.OutcomeYes, 500))

	pool, err := repo.PoolSums(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{Yes: 2_000, No: 700}, pool)

	err = repo.IncrementPool(ctx, uuid.New(), enums.OutcomeYes, 1)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestComputePoolSumsCountsActiveStakesOnly(t *testing.T) {
	ctx := context.Background()
	conn := newMarketDB(t)
	repo := NewRepository(conn)
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	seedStake(t, conn, market.ID, enums.OutcomeYes, 1_000, enums.StakeStatusActive)
	seedStake(t, conn, market.ID, enums.OutcomeYes, 250, enums.StakeStatusActive)
	seedStake(t, conn, market.ID, enums.OutcomeNo, 400, enums.StakeStatusActive)
	seedStake(t, conn, market.ID, enums.OutcomeNo, 9_999, enums.StakeStatusRefunded)

	pool, err := repo.ComputePoolSums(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{Yes: 1_250, No: 400}, pool)

	require.NoError(t, repo.SetPoolTotals(ctx, market.ID, pool))
	stored, err := repo.PoolSums(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pool, stored)
}

func TestSettleAndCancelTransitions(t *testing.T) {
	ctx := context.Background()
	conn := newMarketDB(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	settled := seedMarket(t, repo, enums.MarketStatusClosed)
	require.NoError(t, repo.Settle(ctx, settled.ID, enums.OutcomeNo, now))
	err := repo.Settle(ctx, settled.ID, enums.OutcomeYes, now)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	reloaded, err := repo.FindByID(ctx, settled.ID)
	require.NoError(t, err)
	require.Equal(t, enums.MarketStatusSettled, reloaded.Status)
	require.NotNil(t, reloaded.WinningOutcome)
	require.Equal(t, enums.OutcomeNo, *reloaded.WinningOutcome)

	cancelled := seedMarket(t, repo, enums.MarketStatusOpen)
	require.NoError(t, repo.Cancel(ctx, cancelled.ID, now))

	err = repo.Cancel(ctx, uuid.New(), now)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	untouched := seedMarket(t, repo, enums.MarketStatusSettled)
	seedStake(t, conn, settled.ID, enums.OutcomeYes, 100, enums.StakeStatusActive)
	seedStake(t, conn, cancelled.ID, enums.OutcomeYes, 100, enums.StakeStatusActive)
	seedStake(t, conn, untouched.ID, enums.OutcomeYes, 100, enums.StakeStatusActive)

	pending, err := repo.ListResolvedWithActiveStakes(ctx, 10)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.ID)
	}
	require.ElementsMatch(t, []uuid.UUID{settled.ID, cancelled.ID}, ids)
}

func TestListIDsByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newMarketDB(t))
	open := seedMarket(t, repo, enums.MarketStatusOpen)
	closed := seedMarket(t, repo, enums.MarketStatusClosed)
	seedMarket(t, repo, enums.MarketStatusSettled)

	ids, err := repo.ListIDsByStatus(ctx, []enums.MarketStatus{enums.MarketStatusOpen, enums.MarketStatusClosed}, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{open.ID, closed.ID}, ids)
}

func TestWithTxRollsBackPoolIncrement(t *testing.T) {
	ctx := context.Background()
	conn := newMarketDB(t)
	repo := NewRepository(conn)
	market := seedMarket(t, repo, enums.MarketStatusOpen)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).FindByIDForUpdate(ctx, market.ID)
		require.NoError(t, err)
		require.NoError(t, repo.WithTx(tx).IncrementPool(ctx, locked.ID, enums.OutcomeNo, 10))
		return gorm.ErrInvalidTransaction
	})

	pool, err := repo.PoolSums(ctx, market.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.Pool{}, pool)
}
