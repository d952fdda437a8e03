package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/amirasaad/mileage/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// Repositories handed out inside Do are bound to the gorm transaction; outside
// Do they run on the plain connection pool.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*repository.AccountRepository)(nil)).Elem(): func(db *gorm.DB) any {
				return NewAccountRepository(db)
			},
			reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem(): func(db *gorm.DB) any {
				return NewTransactionRepository(db)
			},
		},
	}
}

// Do runs the given function in a transaction boundary, providing a UoW with repository access.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		// already inside a transaction: join it
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	})
}

// GetRepository provides type-safe access to repositories using the current session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

// AccountRepository implements repository.UnitOfWork.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	repoAny, err := u.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repoAny.(repository.AccountRepository), nil
}

// TransactionRepository implements repository.UnitOfWork.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	repoAny, err := u.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repoAny.(repository.TransactionRepository), nil
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

var _ repository.UnitOfWork = (*UoW)(nil)
