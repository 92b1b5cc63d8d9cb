package promos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newPromoDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:promos_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A shared in-memory sqlite database allows a single writer, so concurrent
	// tests here exercise serialized outcomes of the conditional UPDATEs, not
	// row-lock contention.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func newTestService(t *testing.T, repo Repository) *service {
	t.Helper()
	svc, err := NewService(repo, nil, nil)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return fixedNow }
	return impl
}

func limit(n int64) *int64 { return &n }

func seedPromo(t *testing.T, repo Repository, promo models.PromoCode) *models.PromoCode {
	t.Helper()
	if promo.ExpiresAt.IsZero() {
		promo.ExpiresAt = fixedNow.Add(24 * time.Hour)
	}
	if promo.DiscountPercent.IsZero() {
		promo.DiscountPercent = decimal.NewFromInt(10)
	}
	require.NoError(t, repo.Create(context.Background(), &promo))
	return &promo
}

func requireReason(t *testing.T, err error, want enums.PromoRejectReason) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodePromoInvalid, pkgerrors.CodeOf(err))
	reason, ok := RejectReason(err)
	require.True(t, ok)
	require.Equal(t, want, reason)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "WELCOME10", Canonical("  welcome10 "))
	assert.Equal(t, "", Canonical("   "))
}

func TestValidateReasons(t *testing.T) {
	repo := NewRepository(newPromoDB(t))
	svc := newTestService(t, repo)
	ctx := context.Background()

	seedPromo(t, repo, models.PromoCode{Code: "VALID", IsActive: true, UsageLimit: limit(5), UsedCount: 4})
	seedPromo(t, repo, models.PromoCode{Code: "OFF", IsActive: false})
	seedPromo(t, repo, models.PromoCode{Code: "OLD", IsActive: true, ExpiresAt: fixedNow})
	seedPromo(t, repo, models.PromoCode{Code: "GONE", IsActive: true, UsageLimit: limit(2), UsedCount: 2})

	promo, err := svc.Validate(ctx, nil, " valid ")
	require.NoError(t, err)
	require.Equal(t, "VALID", promo.Code)

	tests := []struct {
		code string
		want enums.PromoRejectReason
	}{
		{code: "MISSING", want: enums.PromoRejectNotFound},
		{code: "", want: enums.PromoRejectNotFound},
		{code: "off", want: enums.PromoRejectInactive},
		{code: "OLD", want: enums.PromoRejectExpired},
		{code: "GONE", want: enums.PromoRejectExhausted},
	}
	for _, tt := range tests {
		_, err := svc.Validate(ctx, nil, tt.code)
		requireReason(t, err, tt.want)
	}
}

func TestRedeemIncrementsUntilExhausted(t *testing.T) {
	repo := NewRepository(newPromoDB(t))
	svc := newTestService(t, repo)
	ctx := context.Background()
	seedPromo(t, repo, models.PromoCode{Code: "TWICE", IsActive: true, UsageLimit: limit(2)})

	promo, err := svc.Redeem(ctx, nil, "twice")
	require.NoError(t, err)
	require.Equal(t, int64(1), promo.UsedCount)

	promo, err = svc.Redeem(ctx, nil, "TWICE")
	require.NoError(t, err)
	require.Equal(t, int64(2), promo.UsedCount)

	_, err = svc.Redeem(ctx, nil, "TWICE")
	requireReason(t, err, enums.PromoRejectExhausted)

	stored, err := repo.FindByCode(ctx, "TWICE")
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.UsedCount)
}

func TestRedeemUnlimitedCode(t *testing.T) {
	repo := NewRepository(newPromoDB(t))
	svc := newTestService(t, repo)
	seedPromo(t, repo, models.PromoCode{Code: "OPEN", IsActive: true})

	for i := 0; i < 3; i++ {
		_, err := svc.Redeem(context.Background(), nil, "OPEN")
		require.NoError(t, err)
	}
	stored, err := repo.FindByCode(context.Background(), "OPEN")
	require.NoError(t, err)
	require.Equal(t, int64(3), stored.UsedCount)
}

func TestRedeemReportsMostApplicableReason(t *testing.T) {
	repo := NewRepository(newPromoDB(t))
	svc := newTestService(t, repo)
	seedPromo(t, repo, models.PromoCode{Code: "OFF", IsActive: false})
	seedPromo(t, repo, models.PromoCode{Code: "OLD", IsActive: true, ExpiresAt: fixedNow.Add(-time.Minute)})

	_, err := svc.Redeem(context.Background(), nil, "NOPE")
	requireReason(t, err, enums.PromoRejectNotFound)
	_, err = svc.Redeem(context.Background(), nil, "OFF")
	requireReason(t, err, enums.PromoRejectInactive)
	_, err = svc.Redeem(context.Background(), nil, "OLD")
	requireReason(t, err, enums.PromoRejectExpired)
}

func TestConcurrentRedeemSingleRemainingUse(t *testing.T) {
	conn := newPromoDB(t)
	repo := NewRepository(conn)
	svc := newTestService(t, repo)
	seedPromo(t, repo, models.PromoCode{Code: "ONCE", IsActive: true, UsageLimit: limit(1)})

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		exhausted int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := conn.Transaction(func(tx *gorm.DB) error {
				_, err := svc.Redeem(context.Background(), tx, "ONCE")
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if reason, ok := RejectReason(err); ok && reason == enums.PromoRejectExhausted {
				exhausted++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, exhausted)

	stored, err := repo.FindByCode(context.Background(), "ONCE")
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.UsedCount)
}

func TestRedeemForUserRejectsSecondUse(t *testing.T) {
	repo := NewRepository(newPromoDB(t))
	svc := newTestService(t, repo)
	ctx := context.Background()
	seedPromo(t, repo, models.PromoCode{Code: "PERUSER", IsActive: true})
	userID := uuid.New()

	promo, err := svc.RedeemForUser(ctx, nil, RedeemInput{Code: "peruser", UserID: userID, StakeID: uuid.New()})
	require.NoError(t, err)
	require.Equal(t, int64(1), promo.UsedCount)

	_, err = svc.RedeemForUser(ctx, nil, RedeemInput{Code: "PERUSER", UserID: userID, StakeID: uuid.New()})
	requireReason(t, err, enums.PromoRejectAlreadyUsed)

	_, err = svc.RedeemForUser(ctx, nil, RedeemInput{Code: "PERUSER", UserID: uuid.New(), StakeID: uuid.New()})
	require.NoError(t, err)

	stored, err := repo.FindByCode(ctx, "PERUSER")
	require.NoError(t, err)
	require.Equal(t, int64(2), stored.UsedCount)
}

func TestRedeemForUserRequiresUser(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})
	_, err := svc.RedeemForUser(context.Background(), nil, RedeemInput{Code: "X"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRedeemRolledBackWithTransaction(t *testing.T) {
	conn := newPromoDB(t)
	repo := NewRepository(conn)
	svc := newTestService(t, repo)
	seedPromo(t, repo, models.PromoCode{Code: "ROLLBACK", IsActive: true, UsageLimit: limit(1)})

	abort := errors.New("stake insert failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.RedeemForUser(context.Background(), tx, RedeemInput{Code: "ROLLBACK", UserID: uuid.New(), StakeID: uuid.New()}); err != nil {
			return err
		}
		return abort
	})
	require.ErrorIs(t, err, abort)

	stored, err := repo.FindByCode(context.Background(), "ROLLBACK")
	require.NoError(t, err)
	require.Zero(t, stored.UsedCount)

	var redemptions int64
	require.NoError(t, conn.Model(&models.PromoRedemption{}).Count(&redemptions).Error)
	require.Zero(t, redemptions)
}

func TestRedeemClassifiesStorageErrors(t *testing.T) {
	svc := newTestService(t, &fakeRepository{
		incrementFn: func(string, time.Time) (int64, error) {
			return 0, errors.New("connection reset")
		},
	})
	_, err := svc.Redeem(context.Background(), nil, "ANY")
	require.Equal(t, pkgerrors.CodePersistence, pkgerrors.CodeOf(err))
}

func TestRedeemConflictWhenRereadLooksValid(t *testing.T) {
	svc := newTestService(t, &fakeRepository{
		incrementFn: func(string, time.Time) (int64, error) { return 0, nil },
		findFn: func(code string) (*models.PromoCode, error) {
			return &models.PromoCode{Code: code, IsActive: true, ExpiresAt: fixedNow.Add(time.Hour)}, nil
		},
	})
	_, err := svc.Redeem(context.Background(), nil, "RACE")
	require.Equal(t, pkgerrors.CodeConcurrency, pkgerrors.CodeOf(err))
}

type fakeRepository struct {
	findFn      func(code string) (*models.PromoCode, error)
	incrementFn func(code string, now time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(*gorm.DB) Repository { return f }

func (f *fakeRepository) Create(context.Context, *models.PromoCode) error { return nil }

func (f *fakeRepository) FindByCode(_ context.Context, code string) (*models.PromoCode, error) {
	if f.findFn != nil {
		return f.findFn(code)
	}
	return nil, nil
}

func (f *fakeRepository) IncrementUsage(_ context.Context, code string, now time.Time) (int64, error) {
	if f.incrementFn != nil {
		return f.incrementFn(code, now)
	}
	return 0, nil
}

func (f *fakeRepository) HasRedemption(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeRepository) CreateRedemption(context.Context, *models.PromoRedemption) error {
	return nil
}
