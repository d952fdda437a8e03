package repository

import (
	"context"
	"reflect"
)

// UnitOfWork defines the contract for transactional work and type-safe repository access.
//
// Repositories obtained from the UnitOfWork passed to Do share its database
// transaction, so an account update and a transaction append either both
// commit or both roll back.
//
// Example usage:
//
//	err := uow.Do(ctx, func(uow UnitOfWork) error {
//		accounts, err := uow.AccountRepository()
//		...
//	})
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested type, bound to the current session.
	// Example:
	//   repoAny, err := uow.GetRepository(reflect.TypeOf((*AccountRepository)(nil)).Elem())
	//   repo := repoAny.(AccountRepository)
	GetRepository(repoType reflect.Type) (any, error)

	AccountRepository() (AccountRepository, error)
	TransactionRepository() (TransactionRepository, error)
}
