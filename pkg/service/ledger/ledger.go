// Package ledger implements the mileage points ledger: the four write operations
// that move points and the read interface over accounts and their history.
//
// Every write runs in a single unit of work. The account row is updated with an
// optimistic version check and exactly one transaction row is appended, so the
// pair either commits together or not at all. The service never retries; a lost
// race surfaces as mileage.ErrConcurrentModification and callers decide whether
// to run the operation again (see package retry).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/amirasaad/mileage/pkg/domain"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/amirasaad/mileage/pkg/repository"
)

// Field limits enforced on writes.
const (
	MaxDescriptionLength = 500
	MaxSourceTypeLength  = 50
)

// Result is the committed state after a write.
type Result struct {
	Account     *mileage.Account
	Transaction *mileage.Transaction
}

// Service provides the ledger operations.
type Service struct {
	uow             repository.UnitOfWork
	logger          *slog.Logger
	now             func() time.Time
	pessimistic     bool
	defaultPageSize int
	maxPageSize     int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPessimisticLocking makes writes read the account with SELECT ... FOR UPDATE.
func WithPessimisticLocking(enabled bool) Option {
	return func(s *Service) { s.pessimistic = enabled }
}

// WithPageSizes sets the listing limit used when none is given and the upper bound for any limit.
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if defaultSize > 0 {
			s.defaultPageSize = defaultSize
		}
		if maxSize >= s.defaultPageSize {
			s.maxPageSize = maxSize
		}
	}
}

// New creates a ledger Service.
func New(uow repository.UnitOfWork, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		uow:             uow,
		logger:          logger.With("service", "ledger"),
		now:             time.Now,
		defaultPageSize: 50,
		maxPageSize:     500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Earn credits points to the user's account, opening it on first use.
func (s *Service) Earn(
	ctx context.Context,
	userID, points int64,
	source mileage.Source,
	description string,
) (*Result, error) {
	return s.apply(ctx, mileage.KindEarn, userID, points, source, description,
		func(a *mileage.Account, now time.Time) (int64, error) { return a.Earn(points, now) })
}

// Use debits points the user spent. The balance may go negative.
func (s *Service) Use(
	ctx context.Context,
	userID, points int64,
	source mileage.Source,
	description string,
) (*Result, error) {
	return s.apply(ctx, mileage.KindUse, userID, points, source, description,
		func(a *mileage.Account, now time.Time) (int64, error) { return a.Use(points, now) })
}

// Expire removes lapsed points from the available balance.
func (s *Service) Expire(ctx context.Context, userID, points int64, description string) (*Result, error) {
	return s.apply(ctx, mileage.KindExpire, userID, points, mileage.Source{}, description,
		func(a *mileage.Account, now time.Time) (int64, error) { return a.Expire(points, now) })
}

// Adjust applies a signed administrative correction. Zero is recorded as well.
func (s *Service) Adjust(ctx context.Context, userID, points int64, description string) (*Result, error) {
	return s.apply(ctx, mileage.KindAdjust, userID, points, mileage.Source{}, description,
		func(a *mileage.Account, now time.Time) (int64, error) { return a.Adjust(points, now) })
}

type mutation func(a *mileage.Account, now time.Time) (int64, error)

func (s *Service) apply(
	ctx context.Context,
	kind mileage.Kind,
	userID, points int64,
	source mileage.Source,
	description string,
	mutate mutation,
) (*Result, error) {
	logger := s.logger.With(
		"operation", kind.String(),
		"userID", userID,
		"points", points,
	)
	logger.Info("ledger write started")

	if err := validateWrite(source, description); err != nil {
		logger.Warn("ledger write rejected", "error", err)
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	var result *Result
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return fmt.Errorf("account repository: %w", err)
		}
		transactions, err := uow.TransactionRepository()
		if err != nil {
			return fmt.Errorf("transaction repository: %w", err)
		}

		acct, err := s.loadOrOpen(ctx, accounts, userID, now)
		if err != nil {
			return err
		}

		delta, err := mutate(acct, now)
		if err != nil {
			return err
		}
		tx := mileage.NewTransaction(acct, kind, delta, source, description, now)

		if err := accounts.Update(ctx, acct); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if err := transactions.Append(ctx, tx); err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		result = &Result{Account: acct, Transaction: tx}
		return nil
	})
	if err != nil {
		if errors.Is(err, mileage.ErrConcurrentModification) {
			logger.Warn("ledger write lost a concurrent update", "error", err)
		} else {
			logger.Error("ledger write failed", "error", err)
		}
		return nil, err
	}

	logger.Info("ledger write successful",
		"transactionID", result.Transaction.ID,
		"sequence", result.Transaction.Sequence,
		"balanceAfter", result.Transaction.BalanceAfter,
	)
	return result, nil
}

// loadOrOpen returns the user's account, creating it at version 0 when absent.
// A unique-key collision means another writer opened it first.
func (s *Service) loadOrOpen(
	ctx context.Context,
	accounts repository.AccountRepository,
	userID int64,
	now time.Time,
) (*mileage.Account, error) {
	var (
		acct *mileage.Account
		err  error
	)
	if s.pessimistic {
		acct, err = accounts.GetByUserIDForUpdate(ctx, userID)
	} else {
		acct, err = accounts.GetByUserID(ctx, userID)
	}
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, mileage.ErrAccountNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}

	acct = mileage.NewAccount(userID, now)
	if err := accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("open account: %w", mileage.ErrConcurrentModification)
		}
		return nil, fmt.Errorf("open account: %w", err)
	}
	return acct, nil
}

func validateWrite(source mileage.Source, description string) error {
	if source.ID != nil && source.Type == "" {
		return fmt.Errorf("%w: source id given without source type", domain.ErrValidation)
	}
	if utf8.RuneCountInString(source.Type) > MaxSourceTypeLength {
		return fmt.Errorf("%w: source type longer than %d characters", domain.ErrValidation, MaxSourceTypeLength)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description longer than %d characters", domain.ErrValidation, MaxDescriptionLength)
	}
	return nil
}
