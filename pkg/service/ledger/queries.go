package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/dto"
	"github.com/amirasaad/mileage/pkg/repository"
	"github.com/google/uuid"
)

// Page selects a window of a listing. A zero Limit means the default page size.
type Page struct {
	Limit  int
	Offset int
}

// GetAccount returns the user's account. Reads never open accounts.
func (s *Service) GetAccount(ctx context.Context, userID int64) (*mileage.Account, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return accounts.GetByUserID(ctx, userID)
}

// Transactions lists transactions matching filter ordered by creation time, then sequence.
func (s *Service) Transactions(ctx context.Context, filter dto.TransactionFilter) ([]*mileage.Transaction, error) {
	if filter.Kind != nil && !filter.Kind.Valid() {
		return nil, mileage.ErrInvalidKind
	}
	if err := validatePeriod(filter.From, filter.To); err != nil {
		return nil, err
	}
	if filter.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}
	filter.Limit = s.pageLimit(filter.Limit)

	transactions, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	return transactions.List(ctx, filter)
}

// TransactionsByAccount lists one account's transactions.
func (s *Service) TransactionsByAccount(ctx context.Context, accountID uuid.UUID, page Page) ([]*mileage.Transaction, error) {
	return s.Transactions(ctx, page.filter(dto.TransactionFilter{AccountID: &accountID}))
}

// TransactionsByUser lists one user's transactions.
func (s *Service) TransactionsByUser(ctx context.Context, userID int64, page Page) ([]*mileage.Transaction, error) {
	return s.Transactions(ctx, page.filter(dto.TransactionFilter{UserID: &userID}))
}

// TransactionsByKind lists transactions of one kind across all accounts.
func (s *Service) TransactionsByKind(ctx context.Context, kind mileage.Kind, page Page) ([]*mileage.Transaction, error) {
	return s.Transactions(ctx, page.filter(dto.TransactionFilter{Kind: &kind}))
}

// TransactionsBySource lists transactions attributed to a source. A nil sourceID
// matches every id of that source type.
func (s *Service) TransactionsBySource(
	ctx context.Context,
	sourceType string,
	sourceID *int64,
	page Page,
) ([]*mileage.Transaction, error) {
	return s.Transactions(ctx, page.filter(dto.TransactionFilter{SourceType: &sourceType, SourceID: sourceID}))
}

// TransactionsBetween lists transactions created in [from, to).
func (s *Service) TransactionsBetween(ctx context.Context, from, to time.Time, page Page) ([]*mileage.Transaction, error) {
	return s.Transactions(ctx, page.filter(dto.TransactionFilter{From: &from, To: &to}))
}

// Totals sums points per kind for everyone or one user, optionally within [From, To).
func (s *Service) Totals(ctx context.Context, filter dto.TotalsFilter) (dto.Totals, error) {
	if err := validatePeriod(filter.From, filter.To); err != nil {
		return dto.Totals{}, err
	}
	transactions, err := s.uow.TransactionRepository()
	if err != nil {
		return dto.Totals{}, err
	}
	return transactions.Totals(ctx, filter)
}

// Rank places the user's account by field: 1 + the number of accounts strictly above it.
func (s *Service) Rank(ctx context.Context, userID int64, by dto.RankField) (dto.Rank, error) {
	if !by.Valid() {
		return dto.Rank{}, mileage.ErrInvalidRankField
	}
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return dto.Rank{}, err
	}
	acct, err := accounts.GetByUserID(ctx, userID)
	if err != nil {
		return dto.Rank{}, err
	}

	value := acct.Available
	if by == dto.RankByTotal {
		value = acct.Total
	}
	above, err := accounts.CountGreater(ctx, by, value)
	if err != nil {
		return dto.Rank{}, err
	}
	count, err := accounts.Count(ctx)
	if err != nil {
		return dto.Rank{}, err
	}
	return dto.Rank{
		UserID:   userID,
		By:       by,
		Value:    value,
		Position: above + 1,
		Accounts: count,
	}, nil
}

// Leaderboard returns the top accounts by field.
func (s *Service) Leaderboard(ctx context.Context, by dto.RankField, limit int) ([]*mileage.Account, error) {
	if !by.Valid() {
		return nil, mileage.ErrInvalidRankField
	}
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return accounts.Top(ctx, by, s.pageLimit(limit))
}

// Verify replays the account's full history and compares it with every stored
// snapshot and with the account's balance. The account row is locked while
// reading so no write interleaves.
func (s *Service) Verify(ctx context.Context, userID int64) (mileage.ReplayReport, error) {
	var report mileage.ReplayReport
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		transactions, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		acct, err := accounts.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		history, err := transactions.History(ctx, acct.ID)
		if err != nil {
			return err
		}
		report = mileage.Replay(acct, history)
		return nil
	})
	if err != nil {
		return mileage.ReplayReport{}, err
	}
	if !report.Consistent {
		s.logger.Error("ledger replay mismatch",
			"userID", userID,
			"replayed", report.Replayed,
			"stored", report.Stored,
			"mismatchSequence", report.MismatchSequence,
		)
	}
	return report, nil
}

func (p Page) filter(f dto.TransactionFilter) dto.TransactionFilter {
	f.Limit, f.Offset = p.Limit, p.Offset
	return f
}

func (s *Service) pageLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultPageSize
	case limit > s.maxPageSize:
		return s.maxPageSize
	default:
		return limit
	}
}

func validatePeriod(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return fmt.Errorf("%w: from must be before to", domain.ErrValidation)
	}
	return nil
}
