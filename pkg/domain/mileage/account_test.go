package mileage_test

import (
	"math"
	"testing"
	"time"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNewAccount(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(42, now)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, int64(42), acct.UserID)
	assert.Zero(t, acct.Available)
	assert.Zero(t, acct.Total)
	assert.Zero(t, acct.Used)
	assert.Zero(t, acct.Version)
}

func TestEarnThenUse(t *testing.T) {
	t.Parallel()
	require := require.New(t)
	acct := mileage.NewAccount(1, now)

	delta, err := acct.Earn(100, now)
	require.NoError(err)
	assert.Equal(t, int64(100), delta)

	delta, err = acct.Use(30, now)
	require.NoError(err)
	assert.Equal(t, int64(-30), delta)

	assert.Equal(t, int64(70), acct.Available)
	assert.Equal(t, int64(100), acct.Total)
	assert.Equal(t, int64(30), acct.Used)
	assert.Equal(t, int64(2), acct.Version)
}

func TestUseBeyondBalanceGoesNegative(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(1, now)
	_, err := acct.Earn(10, now)
	require.NoError(t, err)

	_, err = acct.Use(25, now)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), acct.Available)
	assert.Equal(t, int64(25), acct.Used)
}

func TestExpireLeavesUsedAlone(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(1, now)
	_, err := acct.Earn(50, now)
	require.NoError(t, err)

	delta, err := acct.Expire(20, now)
	require.NoError(t, err)
	assert.Equal(t, int64(-20), delta)
	assert.Equal(t, int64(30), acct.Available)
	assert.Zero(t, acct.Used)
	assert.Equal(t, int64(50), acct.Total)
}

func TestAdjust(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccountFromData(mileage.NewAccount(1, now).ID, 1, 200, 200, 0, 1, now, now)

	delta, err := acct.Adjust(-50, now)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), delta)
	assert.Equal(t, int64(150), acct.Available)
	assert.Equal(t, int64(200), acct.Total)

	delta, err = acct.Adjust(0, now)
	require.NoError(t, err)
	assert.Zero(t, delta)
	assert.Equal(t, int64(3), acct.Version)
}

func TestCountersMovedPerOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                               string
		apply                              func(*mileage.Account) (int64, error)
		wantAvailable, wantTotal, wantUsed int64
	}{
		{name: "earn", apply: func(a *mileage.Account) (int64, error) { return a.Earn(10, now) }, wantAvailable: 90, wantTotal: 110, wantUsed: 20},
		{name: "use", apply: func(a *mileage.Account) (int64, error) { return a.Use(10, now) }, wantAvailable: 70, wantTotal: 100, wantUsed: 30},
		{name: "expire", apply: func(a *mileage.Account) (int64, error) { return a.Expire(10, now) }, wantAvailable: 70, wantTotal: 100, wantUsed: 20},
		{name: "adjust up", apply: func(a *mileage.Account) (int64, error) { return a.Adjust(10, now) }, wantAvailable: 90, wantTotal: 100, wantUsed: 20},
		{name: "adjust down", apply: func(a *mileage.Account) (int64, error) { return a.Adjust(-10, now) }, wantAvailable: 70, wantTotal: 100, wantUsed: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acct := mileage.NewAccountFromData(mileage.NewAccount(1, now).ID, 1, 80, 100, 20, 4, now, now)

			_, err := tt.apply(acct)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, acct.Available, "available")
			assert.Equal(t, tt.wantTotal, acct.Total, "total")
			assert.Equal(t, tt.wantUsed, acct.Used, "used")
			assert.Equal(t, int64(5), acct.Version)
		})
	}
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	t.Parallel()
	ops := map[string]func(*mileage.Account, int64) (int64, error){
		"earn":   func(a *mileage.Account, p int64) (int64, error) { return a.Earn(p, now) },
		"use":    func(a *mileage.Account, p int64) (int64, error) { return a.Use(p, now) },
		"expire": func(a *mileage.Account, p int64) (int64, error) { return a.Expire(p, now) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			for _, p := range []int64{0, -1, math.MinInt64} {
				acct := mileage.NewAccount(1, now)
				_, err := op(acct, p)
				require.ErrorIs(t, err, mileage.ErrInvalidAmount)
				assert.Zero(t, acct.Version, "rejected operation must not touch the account")
				assert.Zero(t, acct.Available)
			}
		})
	}
}

func TestOverflowRejected(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(1, now)
	_, err := acct.Earn(math.MaxInt64, now)
	require.NoError(t, err)

	_, err = acct.Earn(1, now)
	require.ErrorIs(t, err, mileage.ErrPointsOverflow)
	assert.Equal(t, int64(math.MaxInt64), acct.Available)
	assert.Equal(t, int64(1), acct.Version)
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	k, err := mileage.ParseKind(" earn ")
	require.NoError(t, err)
	assert.Equal(t, mileage.KindEarn, k)

	_, err = mileage.ParseKind("refund")
	require.ErrorIs(t, err, mileage.ErrInvalidKind)
}
