// Package mocks holds testify mocks of the repository contracts.
package mocks

import (
	"context"
	"reflect"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/dto"
	"github.com/amirasaad/mileage/pkg/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUnitOfWork runs Do callbacks against itself, so repositories returned
// inside and outside Do are the same mocks.
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if err := m.Called(ctx, fn).Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *MockUnitOfWork) GetRepository(repoType reflect.Type) (any, error) {
	args := m.Called(repoType)
	return args.Get(0), args.Error(1)
}

func (m *MockUnitOfWork) AccountRepository() (repository.AccountRepository, error) {
	args := m.Called()
	repo, _ := args.Get(0).(repository.AccountRepository)
	return repo, args.Error(1)
}

func (m *MockUnitOfWork) TransactionRepository() (repository.TransactionRepository, error) {
	args := m.Called()
	repo, _ := args.Get(0).(repository.TransactionRepository)
	return repo, args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*mileage.Account, error) {
	args := m.Called(ctx, userID)
	acct, _ := args.Get(0).(*mileage.Account)
	return acct, args.Error(1)
}

func (m *MockAccountRepository) GetByUserIDForUpdate(ctx context.Context, userID int64) (*mileage.Account, error) {
	args := m.Called(ctx, userID)
	acct, _ := args.Get(0).(*mileage.Account)
	return acct, args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, acct *mileage.Account) error {
	return m.Called(ctx, acct).Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, acct *mileage.Account) error {
	return m.Called(ctx, acct).Error(0)
}

func (m *MockAccountRepository) CountGreater(ctx context.Context, field dto.RankField, value int64) (int64, error) {
	args := m.Called(ctx, field, value)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) Top(ctx context.Context, field dto.RankField, limit int) ([]*mileage.Account, error) {
	args := m.Called(ctx, field, limit)
	accts, _ := args.Get(0).([]*mileage.Account)
	return accts, args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Append(ctx context.Context, tx *mileage.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Get(ctx context.Context, id uuid.UUID) (*mileage.Transaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*mileage.Transaction)
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter dto.TransactionFilter) ([]*mileage.Transaction, error) {
	args := m.Called(ctx, filter)
	txs, _ := args.Get(0).([]*mileage.Transaction)
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) History(ctx context.Context, accountID uuid.UUID) ([]*mileage.Transaction, error) {
	args := m.Called(ctx, accountID)
	txs, _ := args.Get(0).([]*mileage.Transaction)
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) Totals(ctx context.Context, filter dto.TotalsFilter) (dto.Totals, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(dto.Totals), args.Error(1)
}

var (
	_ repository.UnitOfWork            = (*MockUnitOfWork)(nil)
	_ repository.AccountRepository     = (*MockAccountRepository)(nil)
	_ repository.TransactionRepository = (*MockTransactionRepository)(nil)
)
