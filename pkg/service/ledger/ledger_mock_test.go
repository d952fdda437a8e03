package ledger_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/amirasaad/mileage/internal/fixtures/mocks"
	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeps struct {
	uow      *mocks.MockUnitOfWork
	accounts *mocks.MockAccountRepository
	txs      *mocks.MockTransactionRepository
}

func newMockService(t *testing.T, opts ...ledger.Option) (*ledger.Service, mockDeps) {
	t.Helper()
	d := mockDeps{
		uow:      &mocks.MockUnitOfWork{},
		accounts: &mocks.MockAccountRepository{},
		txs:      &mocks.MockTransactionRepository{},
	}
	d.uow.On("Do", mock.Anything, mock.Anything).Return(nil)
	d.uow.On("AccountRepository").Return(d.accounts, nil)
	d.uow.On("TransactionRepository").Return(d.txs, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ledger.Option{ledger.WithClock(stepClock())}, opts...)
	return ledger.New(d.uow, logger, opts...), d
}

func existing(userID, available, version int64) *mileage.Account {
	return mileage.NewAccountFromData(uuid.New(), userID, available, available, 0, version, t0, t0)
}

func TestEarn_StaleVersionIsConflictAndNothingAppended(t *testing.T) {
	svc, d := newMockService(t)
	ctx := context.Background()

	d.accounts.On("GetByUserID", ctx, int64(1)).Return(existing(1, 100, 4), nil)
	d.accounts.On("Update", ctx, mock.MatchedBy(func(a *mileage.Account) bool {
		return a.Version == 5 && a.Available == 110
	})).Return(mileage.ErrConcurrentModification)

	res, err := svc.Earn(ctx, 1, 10, mileage.Source{}, "")
	assert.ErrorIs(t, err, mileage.ErrConcurrentModification)
	assert.Nil(t, res)
	d.txs.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	d.accounts.AssertExpectations(t)
}

func TestEarn_DuplicateSequenceIsConflict(t *testing.T) {
	svc, d := newMockService(t)
	ctx := context.Background()

	d.accounts.On("GetByUserID", ctx, int64(1)).Return(existing(1, 0, 0), nil)
	d.accounts.On("Update", ctx, mock.Anything).Return(nil)
	d.txs.On("Append", ctx, mock.Anything).Return(mileage.ErrConcurrentModification)

	_, err := svc.Earn(ctx, 1, 10, mileage.Source{}, "")
	assert.ErrorIs(t, err, mileage.ErrConcurrentModification)
}

func TestFirstTouchRaceIsConflict(t *testing.T) {
	svc, d := newMockService(t)
	ctx := context.Background()

	d.accounts.On("GetByUserID", ctx, int64(8)).Return(nil, mileage.ErrAccountNotFound)
	d.accounts.On("Create", ctx, mock.Anything).Return(domain.ErrAlreadyExists)

	_, err := svc.Use(ctx, 8, 5, mileage.Source{}, "")
	assert.ErrorIs(t, err, mileage.ErrConcurrentModification)
	d.accounts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestFirstTouchOpensAccountAtVersionZero(t *testing.T) {
	svc, d := newMockService(t)
	ctx := context.Background()

	var created *mileage.Account
	d.accounts.On("GetByUserID", ctx, int64(8)).Return(nil, mileage.ErrAccountNotFound)
	d.accounts.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		a := args.Get(1).(*mileage.Account)
		// copy: the service keeps mutating the same pointer afterwards
		snapshot := *a
		created = &snapshot
	}).Return(nil)
	d.accounts.On("Update", ctx, mock.Anything).Return(nil)
	d.txs.On("Append", ctx, mock.Anything).Return(nil)

	res, err := svc.Earn(ctx, 8, 25, mileage.Source{Type: "PROGRAM"}, "welcome")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, int64(0), created.Version)
	assert.Equal(t, int64(0), created.Available)
	assert.Equal(t, created.ID, res.Account.ID)
	assert.Equal(t, int64(1), res.Account.Version)
	assert.Equal(t, int64(1), res.Transaction.Sequence)
	assert.Equal(t, int64(25), res.Transaction.BalanceAfter)
	assert.Equal(t, "welcome", res.Transaction.Description)
}

func TestPessimisticModeLocksTheRow(t *testing.T) {
	svc, d := newMockService(t, ledger.WithPessimisticLocking(true))
	ctx := context.Background()

	d.accounts.On("GetByUserIDForUpdate", ctx, int64(1)).Return(existing(1, 10, 1), nil)
	d.accounts.On("Update", ctx, mock.Anything).Return(nil)
	d.txs.On("Append", ctx, mock.Anything).Return(nil)

	_, err := svc.Expire(ctx, 1, 10, "")
	require.NoError(t, err)
	d.accounts.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

func TestUnitOfWorkFailureIsReturned(t *testing.T) {
	svc, d := newMockService(t)
	boom := errors.New("connection refused")
	d.uow.ExpectedCalls = nil
	d.uow.On("Do", mock.Anything, mock.Anything).Return(boom)

	_, err := svc.Adjust(context.Background(), 1, 5, "")
	assert.ErrorIs(t, err, boom)
}

func TestVerifyReportsTamperedHistory(t *testing.T) {
	svc, d := newMockService(t)
	ctx := context.Background()
	acct := existing(1, 70, 2)

	d.accounts.On("GetByUserIDForUpdate", ctx, int64(1)).Return(acct, nil)
	d.txs.On("History", ctx, acct.ID).Return([]*mileage.Transaction{
		mileage.NewTransactionFromData(uuid.New(), acct.ID, 1, mileage.KindEarn, 100, mileage.Source{}, "", 100, 1, t0),
		mileage.NewTransactionFromData(uuid.New(), acct.ID, 1, mileage.KindUse, -30, mileage.Source{}, "", 75, 2, t0),
	}, nil)

	report, err := svc.Verify(ctx, 1)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(2), report.MismatchSequence)
	assert.Equal(t, int64(70), report.Replayed)
}
