package mileage_test

import (
	"testing"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionSnapshotsAccount(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(7, now)
	before := *acct

	delta, err := acct.Earn(100, now)
	require.NoError(t, err)
	afterEarn := *acct

	programID := int64(31)
	tx := mileage.NewTransaction(acct, mileage.KindEarn, delta,
		mileage.Source{Type: "PROGRAM", ID: &programID}, "completed program", now)

	assert.Equal(t, afterEarn, *acct, "building a transaction must not mutate the account")
	assert.NotEqual(t, before.Available, acct.Available)
	assert.Equal(t, acct.ID, tx.AccountID)
	assert.Equal(t, int64(7), tx.UserID)
	assert.Equal(t, int64(100), tx.Points)
	assert.Equal(t, int64(100), tx.BalanceAfter)
	assert.Equal(t, int64(1), tx.Sequence)
	assert.Equal(t, "PROGRAM", tx.Source.Type)
	assert.False(t, tx.Source.IsZero())
}

func TestReplay(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(1, now)
	var txs []*mileage.Transaction
	apply := func(kind mileage.Kind, op func() (int64, error)) {
		delta, err := op()
		require.NoError(t, err)
		txs = append(txs, mileage.NewTransaction(acct, kind, delta, mileage.Source{}, "", now))
	}
	apply(mileage.KindEarn, func() (int64, error) { return acct.Earn(100, now) })
	apply(mileage.KindUse, func() (int64, error) { return acct.Use(30, now) })
	apply(mileage.KindExpire, func() (int64, error) { return acct.Expire(20, now) })
	apply(mileage.KindAdjust, func() (int64, error) { return acct.Adjust(-70, now) })
	apply(mileage.KindUse, func() (int64, error) { return acct.Use(5, now) })

	// order of input must not matter
	shuffled := []*mileage.Transaction{txs[3], txs[0], txs[4], txs[2], txs[1]}
	report := mileage.Replay(acct, shuffled)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(-25), report.Replayed)
	assert.Equal(t, acct.Available, report.Stored)
	assert.Equal(t, 5, report.Transactions)
	assert.Zero(t, report.MismatchSequence)

	t.Run("tampered snapshot", func(t *testing.T) {
		tampered := *txs[2]
		tampered.BalanceAfter++
		report := mileage.Replay(acct, []*mileage.Transaction{txs[0], txs[1], &tampered, txs[3], txs[4]})
		assert.False(t, report.Consistent)
		assert.Equal(t, int64(3), report.MismatchSequence)
	})

	t.Run("missing transaction", func(t *testing.T) {
		report := mileage.Replay(acct, []*mileage.Transaction{txs[0], txs[1], txs[3], txs[4]})
		assert.False(t, report.Consistent)
		assert.Equal(t, int64(4), report.MismatchSequence)
	})

	t.Run("empty history", func(t *testing.T) {
		report := mileage.Replay(mileage.NewAccount(2, now), nil)
		assert.True(t, report.Consistent)
		assert.Zero(t, report.Replayed)
	})
}

func TestTransactionRecordedEvent(t *testing.T) {
	t.Parallel()
	acct := mileage.NewAccount(9, now)
	delta, err := acct.Use(12, now)
	require.NoError(t, err)
	tx := mileage.NewTransaction(acct, mileage.KindUse, delta, mileage.Source{Type: "SHOP"}, "", now)

	evt := mileage.NewTransactionRecorded(tx)
	assert.Equal(t, mileage.EventTypeTransactionRecorded, evt.Type())
	assert.Equal(t, tx.ID, evt.TransactionID)
	assert.Equal(t, int64(-12), evt.Points)
	assert.Equal(t, int64(-12), evt.BalanceAfter)
	assert.Equal(t, "SHOP", evt.SourceType)
}
