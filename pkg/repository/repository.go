package repository

import (
	"context"

	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/dto"
	"github.com/google/uuid"
)

// AccountRepository defines data access for mileage accounts.
type AccountRepository interface {
	// GetByUserID returns mileage.ErrAccountNotFound when the user has no account.
	GetByUserID(ctx context.Context, userID int64) (*mileage.Account, error)
	// GetByUserIDForUpdate is GetByUserID holding a row lock until the surrounding
	// transaction ends, on dialects that support it.
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*mileage.Account, error)
	Create(ctx context.Context, acct *mileage.Account) error
	// Update persists acct only if the stored row is at version acct.Version-1.
	// Otherwise it returns mileage.ErrConcurrentModification.
	Update(ctx context.Context, acct *mileage.Account) error
	// CountGreater counts accounts whose field is strictly greater than value.
	CountGreater(ctx context.Context, field dto.RankField, value int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	// Top returns up to limit accounts ordered by field descending, ties by user id.
	Top(ctx context.Context, field dto.RankField, limit int) ([]*mileage.Account, error)
}

// TransactionRepository defines append-only access to ledger transactions.
type TransactionRepository interface {
	Append(ctx context.Context, tx *mileage.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*mileage.Transaction, error)
	List(ctx context.Context, filter dto.TransactionFilter) ([]*mileage.Transaction, error)
	// History returns every transaction of an account ordered by sequence.
	History(ctx context.Context, accountID uuid.UUID) ([]*mileage.Transaction, error)
	Totals(ctx context.Context, filter dto.TotalsFilter) (dto.Totals, error)
}
